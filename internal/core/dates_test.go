package core

import (
	"testing"
	"time"
)

var refDate = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func TestParseDate_LiteralDate(t *testing.T) {
	parsed, ok := ParseDate("September 15, 2026", refDate)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if parsed.Year() != 2026 || parsed.Month() != time.September || parsed.Day() != 15 {
		t.Errorf("expected 2026-09-15, got %v", parsed)
	}
}

func TestParseDate_RejectsOutsideWindow(t *testing.T) {
	if _, ok := ParseDate("2031-01-01", refDate); ok {
		t.Error("expected date five years out to be rejected")
	}
	if _, ok := ParseDate("2019-03-01", refDate); ok {
		t.Error("expected date seven years back to be rejected")
	}
}

func TestParseDate_EmptyAndGarbage(t *testing.T) {
	if _, ok := ParseDate("", refDate); ok {
		t.Error("expected empty text to fail")
	}
	if _, ok := ParseDate("   ", refDate); ok {
		t.Error("expected whitespace to fail")
	}
	if _, ok := ParseDate("no date here at all", refDate); ok {
		t.Error("expected non-date text to fail")
	}
}

func TestExtractDeadlineDate_LabeledPhrase(t *testing.T) {
	text := "Campus drive announced. Deadline: 10 Oct 2026. Do not miss it."
	parsed, ok := ExtractDeadlineDate(text, refDate)
	if !ok {
		t.Fatal("expected labeled deadline to parse")
	}
	if parsed.Year() != 2026 || parsed.Month() != time.October || parsed.Day() != 10 {
		t.Errorf("expected 2026-10-10, got %v", parsed)
	}
}

func TestExtractDeadlineDate_NoDeadline(t *testing.T) {
	if _, ok := ExtractDeadlineDate("General announcement with nothing scheduled", refDate); ok {
		t.Error("expected no deadline to be found")
	}
	if _, ok := ExtractDeadlineDate("", refDate); ok {
		t.Error("expected empty text to fail")
	}
}

func TestFormatDateForStorage(t *testing.T) {
	if got := FormatDateForStorage(nil); got != nil {
		t.Errorf("expected nil for nil date, got %q", *got)
	}

	zero := time.Time{}
	if got := FormatDateForStorage(&zero); got != nil {
		t.Errorf("expected nil for zero date, got %q", *got)
	}

	d := time.Date(2026, 3, 5, 23, 30, 0, 0, time.UTC)
	got := FormatDateForStorage(&d)
	if got == nil || *got != "2026-03-05" {
		t.Errorf("expected 2026-03-05, got %v", got)
	}
}
