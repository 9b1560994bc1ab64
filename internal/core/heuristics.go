package core

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Regex-based field extraction used when LLM extraction is unavailable or
// leaves a field empty. All extractors are pure functions: no I/O, bounded
// runtime, best effort.

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:from|at)\s+([A-Z][A-Za-z\s&]+?)(?:\s+-|\s+for|\s+is|,)`),
	regexp.MustCompile(`\[([A-Z][A-Za-z\s&]+?)\]`),
	regexp.MustCompile(`^([A-Z][A-Za-z\s&]+?)(?:\s+-|\s+:)`),
}

var rolePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:for|hiring|role|position):\s*([A-Za-z\s]+?)(?:\s+at|\s+-|$)`),
	regexp.MustCompile(`(?i)([A-Za-z\s]+?)\s+(?:Internship|Role|Position|Opening)`),
}

var deadlineDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)deadline[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`(?i)apply\s+by[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`(?i)last\s+date[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`(?i)(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4})`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
}

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"]+|www\.[^\s<>"]+`)

var applyLinkKeywords = []string{"apply", "registration", "form", "career"}

// matchFirst runs pattern against subject first, then snippet, returning the
// first capture whose trimmed length falls strictly inside (2, 100).
func matchFirst(pattern *regexp.Regexp, subject, snippet string) (string, bool) {
	for _, text := range []string{subject, snippet} {
		m := pattern.FindStringSubmatch(text)
		if len(m) > 1 {
			candidate := strings.TrimSpace(m[1])
			if len(candidate) > 2 && len(candidate) < 100 {
				return candidate, true
			}
		}
	}
	return "", false
}

// ParseCompany extracts a company name from the subject or snippet.
func ParseCompany(subject, snippet string) *string {
	for _, pattern := range companyPatterns {
		if company, ok := matchFirst(pattern, subject, snippet); ok {
			return &company
		}
	}
	return nil
}

// ParseRole extracts a job role from the subject or snippet.
func ParseRole(subject, snippet string) *string {
	for _, pattern := range rolePatterns {
		if role, ok := matchFirst(pattern, subject, snippet); ok {
			return &role
		}
	}
	return nil
}

// ParseDeadline scans fixed date-shaped patterns and returns the first date
// within one year of ref. The window is tighter than ParseDate's on purpose:
// the regex path has no surrounding context to disambiguate with, so it is
// held to a more conservative bound.
func ParseDeadline(text string, ref time.Time) *time.Time {
	for _, pattern := range deadlineDatePatterns {
		m := pattern.FindStringSubmatch(text)
		if len(m) > 1 {
			date, err := dateparse.ParseAny(m[1])
			if err != nil {
				continue
			}
			if withinWindow(date, ref, 1) {
				return &date
			}
		}
	}
	return nil
}

// ParseApplyLink collects every URL in text and picks the most likely
// application link. Links containing an application keyword are preferred in
// order of appearance; otherwise the first URL wins. A bare www. prefix is
// normalized to https://. Never fails: if the candidate does not parse as a
// URL it is returned as-is.
func ParseApplyLink(text string) *string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	selected := ""
	for _, link := range matches {
		lower := strings.ToLower(link)
		for _, kw := range applyLinkKeywords {
			if strings.Contains(lower, kw) {
				selected = link
				break
			}
		}
		if selected != "" {
			break
		}
	}
	if selected == "" {
		selected = matches[0]
	}

	normalized := selected
	if strings.HasPrefix(selected, "www.") {
		normalized = "https://" + selected
	}
	if _, err := url.ParseRequestURI(normalized); err != nil {
		return &selected
	}
	return &normalized
}
