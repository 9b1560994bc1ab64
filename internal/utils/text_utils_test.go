package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exact limit", "hello", 5, "hello"},
		{"ascii cut", "hello world", 5, "hello"},
		{"multi-byte cut", strings.Repeat("é", 10), 4, strings.Repeat("é", 4)},
		{"zero limit", "hello", 0, ""},
		{"negative limit", "hello", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.text, tt.max)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result must be valid UTF-8, got %q", got)
			}
		})
	}
}

func TestTruncateText_UTF8Boundary(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	// 10 two-byte runes cut at 5 bytes: the limit lands mid-rune.
	text := strings.Repeat("é", 10)
	got := tp.TruncateText(text, 5)

	if !utf8.ValidString(got) {
		t.Errorf("truncated text must be valid UTF-8, got %q", got)
	}
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Errorf("expected truncation marker suffix, got %q", got)
	}
	if got := tp.TruncateText("short", 100); got != "short" {
		t.Errorf("text within limit must pass through, got %q", got)
	}
}
