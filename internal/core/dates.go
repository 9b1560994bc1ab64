package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// dateParser resolves relative and absolute date phrases ("next Friday",
// "March 24th") against a reference instant.
var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// deadlinePatterns are the labeled phrases scanned for a deadline fragment.
// Order is significant: the first matching label wins.
var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)deadline[:\s]+([^.]+)`),
	regexp.MustCompile(`(?i)apply\s+by[:\s]+([^.]+)`),
	regexp.MustCompile(`(?i)last\s+date[:\s]+([^.]+)`),
	regexp.MustCompile(`(?i)due\s+on[:\s]+([^.]+)`),
	regexp.MustCompile(`(?i)registration\s+closes\s+on[:\s]+([^.]+)`),
	regexp.MustCompile(`(?i)submit\s+before[:\s]+([^.]+)`),
}

// withinWindow reports whether date falls inside [ref - years, ref + years].
// The window rejects nonsensical extractions (typos, wrong-century parses),
// it does not model a business-valid range.
func withinWindow(date, ref time.Time, years int) bool {
	return !date.Before(ref.AddDate(-years, 0, 0)) && !date.After(ref.AddDate(years, 0, 0))
}

// ParseDate turns free text into a calendar date. It tries the
// natural-language parser first, then a literal date/time parse, and
// rejects results outside a two-year window around ref.
func ParseDate(text string, ref time.Time) (time.Time, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return time.Time{}, false
	}

	if r, err := dateParser.Parse(cleaned, ref); err == nil && r != nil {
		if withinWindow(r.Time, ref, 2) {
			return r.Time, true
		}
	}

	if t, err := dateparse.ParseAny(cleaned); err == nil {
		if withinWindow(t, ref, 2) {
			return t, true
		}
	}

	return time.Time{}, false
}

// ExtractDeadlineDate scans text for labeled deadline phrases and parses the
// captured fragment. If no label matches, the whole text is handed to
// ParseDate as a last resort.
func ExtractDeadlineDate(text string, ref time.Time) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}

	for _, pattern := range deadlinePatterns {
		m := pattern.FindStringSubmatch(text)
		if len(m) > 1 {
			if parsed, ok := ParseDate(m[1], ref); ok {
				return parsed, true
			}
		}
	}

	return ParseDate(text, ref)
}

// FormatDateForStorage renders a date as zero-padded YYYY-MM-DD for the
// store. Nil or zero dates yield nil.
func FormatDateForStorage(date *time.Time) *string {
	if date == nil || date.IsZero() {
		return nil
	}
	s := date.Format("2006-01-02")
	return &s
}
