// internal/app/system/normalize/normalize.go
package normalize

import (
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Name trims and collapses inner whitespace, preserving case.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key is the comparison form of a person or group name: whitespace collapsed
// and case/diacritics folded. "John  Smith" and "john SMITH" share a key.
func Key(s string) string {
	return text.Fold(Name(s))
}

var levelRE = regexp.MustCompile(`(?i)^([abc])\s*([12])(?:\s*[.,]\s*([12]))?$`)

// Level canonicalizes CEFR course levels ("b1.1" -> "B1.1", "a2" -> "A2").
// Unrecognized input is returned trimmed.
func Level(s string) string {
	s = strings.TrimSpace(s)
	m := levelRE.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	out := strings.ToUpper(m[1]) + m[2]
	if m[3] != "" {
		out += "." + m[3]
	}
	return out
}

// Mode maps the delivery mode to online, präsenz or hybrid. Anything else
// (including blank) is online.
func Mode(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "präsenz", "praesenz", "prasenz", "presence", "in-person", "offline":
		return "präsenz"
	case "hybrid":
		return "hybrid"
	default:
		return "online"
	}
}
