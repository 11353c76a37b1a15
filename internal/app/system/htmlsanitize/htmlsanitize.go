// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize cleans free text (student notes and info) that is
// typed by staff or pulled from spreadsheets before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// Sanitize keeps safe formatting markup and drops scripts, handlers and
// dangerous URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// PlainText strips every tag and returns unescaped text, trimmed. It is the
// form notes are stored in.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
