package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/coursedesk/internal/app/system/htmlsanitize"
)

func TestSanitize_Empty(t *testing.T) {
	result := htmlsanitize.Sanitize("")
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestSanitize_PlainText(t *testing.T) {
	result := htmlsanitize.Sanitize("Hello, World!")
	if result != "Hello, World!" {
		t.Errorf("expected plain text unchanged, got %q", result)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	input := "<p>Hello</p><script>alert('xss')</script>"
	result := htmlsanitize.Sanitize(input)
	if result != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", result)
	}
}

func TestSanitize_RemovesOnclick(t *testing.T) {
	input := `<a href="https://example.com" onclick="alert('xss')">Click</a>`
	result := htmlsanitize.Sanitize(input)
	if strings.Contains(result, "onclick") {
		t.Errorf("expected onclick attribute to be removed, got %q", result)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Needs extra reading practice", "Needs extra reading practice"},
		{"ampersand kept", "Mo & Mi", "Mo & Mi"},
		{"tags stripped", "<b>late</b> twice", "late twice"},
		{"script dropped", "ok<script>alert(1)</script>", "ok"},
		{"trimmed", "  spaced  ", "spaced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := htmlsanitize.PlainText(tt.input)
			if got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
