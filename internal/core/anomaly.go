package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

var fullTimeKeywords = []string{"full-time", "full time", "placement", "permanent"}

// DetectAnomalies runs the fixed rule set over merged fields and returns a
// report. Pure and deterministic: rules are evaluated in order, each may
// append one message, and severity only escalates as rules fire. The caller
// supplies now so the deadline rules stay testable.
func DetectAnomalies(data *AnomalyInput, now time.Time) *AnomalyReport {
	var anomalies []string
	severity := SeverityLow

	category := ""
	if data.Category != nil {
		category = *data.Category
	}
	isOpportunity := category == string(CategoryJobOffer) || category == string(CategoryInternship)

	// Rule 1: job offer or internship should name a company.
	if isOpportunity && data.Company == nil {
		anomalies = append(anomalies, "Missing company name for job/internship opportunity")
		severity = severity.Max(SeverityHigh)
	}

	// Rule 2: job offer or internship should name a role.
	if isOpportunity && data.Role == nil {
		anomalies = append(anomalies, "Missing role/position for job/internship opportunity")
		severity = severity.Max(SeverityMedium)
	}

	// Rule 3: job offer or internship should carry an apply link.
	if isOpportunity && data.ApplyLink == nil {
		anomalies = append(anomalies, "Missing application link for job/internship")
		severity = severity.Max(SeverityMedium)
	}

	// Rule 4: job offer mentioning "intern" is likely miscategorized.
	if category == string(CategoryJobOffer) && data.Subject != "" {
		subjectLower := strings.ToLower(data.Subject)
		if strings.Contains(subjectLower, "intern") && !strings.Contains(subjectLower, "international") {
			anomalies = append(anomalies, `Subject mentions "intern" but categorized as job offer`)
			severity = severity.Max(SeverityMedium)
		}
	}

	// Rule 5: internship with full-time keywords is likely miscategorized.
	if category == string(CategoryInternship) && data.Subject != "" {
		subjectLower := strings.ToLower(data.Subject)
		for _, kw := range fullTimeKeywords {
			if strings.Contains(subjectLower, kw) {
				anomalies = append(anomalies, "Subject mentions full-time/placement but categorized as internship")
				severity = severity.Max(SeverityMedium)
				break
			}
		}
	}

	// Rule 6: exam emails should not carry company/role fields.
	if category == string(CategoryExam) && (data.Company != nil || data.Role != nil) {
		anomalies = append(anomalies, "Exam categorized email has company/role fields filled")
		severity = severity.Max(SeverityMedium)
	}

	if data.Deadline != nil {
		// Rule 7: deadline more than 30 days in the past.
		if data.Deadline.Before(now.AddDate(0, 0, -30)) {
			anomalies = append(anomalies, "Deadline is more than 30 days in the past")
			severity = severity.Max(SeverityLow)
		}

		// Rule 8: deadline more than a year in the future.
		if data.Deadline.After(now.AddDate(0, 0, 365)) {
			anomalies = append(anomalies, "Deadline is more than 1 year in the future")
			severity = severity.Max(SeverityLow)
		}
	}

	// Rule 9: salary without a company is suspicious.
	if data.Salary != nil && data.Company == nil {
		anomalies = append(anomalies, "Salary mentioned but no company identified")
		severity = severity.Max(SeverityMedium)
	}

	// Rule 10: apply link without company or role.
	if data.ApplyLink != nil && data.Company == nil && data.Role == nil {
		anomalies = append(anomalies, "Application link present but no company or role identified")
		severity = severity.Max(SeverityMedium)
	}

	// Rule 11: misc category with structured job data.
	if category == string(CategoryMisc) &&
		(data.Company != nil || data.Role != nil || data.ApplyLink != nil || data.Salary != nil) {
		anomalies = append(anomalies, "Categorized as misc but has structured job/internship data")
		severity = severity.Max(SeverityHigh)
	}

	// Rule 12: no category assigned.
	if category == "" {
		anomalies = append(anomalies, "No category assigned to email")
		severity = severity.Max(SeverityMedium)
	}

	// Rule 13: apply link that is not a valid http(s) URL.
	if data.ApplyLink != nil && !isValidURL(*data.ApplyLink) {
		anomalies = append(anomalies, "Apply link appears to be invalid URL")
		severity = severity.Max(SeverityMedium)
	}

	requiresReview := severity == SeverityHigh || len(anomalies) >= 3

	return &AnomalyReport{
		HasAnomaly:     len(anomalies) > 0,
		Anomalies:      anomalies,
		Severity:       severity,
		RequiresReview: requiresReview,
	}
}

// isValidURL reports whether link parses as an http or https URL, after the
// same www. normalization the heuristic extractor applies.
func isValidURL(link string) bool {
	if link == "" {
		return false
	}
	candidate := link
	if strings.HasPrefix(link, "www.") {
		candidate = "https://" + link
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// FormatAnomalyReport renders a report for log output and the CLI.
func FormatAnomalyReport(result *AnomalyReport) string {
	if !result.HasAnomaly {
		return "No anomalies detected"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %d anomaly(ies) detected", strings.ToUpper(string(result.Severity)), len(result.Anomalies))
	for i, a := range result.Anomalies {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, a)
	}
	if result.RequiresReview {
		b.WriteString("\n!! REQUIRES HUMAN REVIEW")
	}
	return b.String()
}
