package core

import (
	"strings"
	"testing"
	"time"
)

var anomalyNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestDetectAnomalies_InternshipMissingEverything(t *testing.T) {
	report := DetectAnomalies(&AnomalyInput{
		Category: strPtr("internship"),
		Subject:  "Summer opportunity",
	}, anomalyNow)

	if !report.HasAnomaly {
		t.Fatal("expected anomalies")
	}
	if len(report.Anomalies) != 3 {
		t.Fatalf("expected 3 anomalies, got %d: %v", len(report.Anomalies), report.Anomalies)
	}
	if report.Severity != SeverityHigh {
		t.Errorf("expected high severity, got %s", report.Severity)
	}
	if !report.RequiresReview {
		t.Error("expected review flag")
	}
	if report.Anomalies[0] != "Missing company name for job/internship opportunity" {
		t.Errorf("unexpected first anomaly: %q", report.Anomalies[0])
	}
}

func TestDetectAnomalies_MiscWithStructuredData(t *testing.T) {
	report := DetectAnomalies(&AnomalyInput{
		Category: strPtr("misc"),
		Company:  strPtr("Acme Corp"),
	}, anomalyNow)

	if len(report.Anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %v", report.Anomalies)
	}
	if report.Severity != SeverityHigh {
		t.Errorf("expected high severity, got %s", report.Severity)
	}
	if !report.RequiresReview {
		t.Error("high severity alone must flag review")
	}
}

func TestDetectAnomalies_TwoMediumAnomaliesNoReview(t *testing.T) {
	report := DetectAnomalies(&AnomalyInput{
		Category: strPtr("job offer"),
		Company:  strPtr("Acme Corp"),
		Subject:  "Opening at Acme",
	}, anomalyNow)

	// Missing role and missing apply link, both medium.
	if len(report.Anomalies) != 2 {
		t.Fatalf("expected 2 anomalies, got %v", report.Anomalies)
	}
	if report.Severity != SeverityMedium {
		t.Errorf("expected medium severity, got %s", report.Severity)
	}
	if report.RequiresReview {
		t.Error("two medium anomalies must not flag review")
	}
}

func TestDetectAnomalies_SeverityNeverDowngrades(t *testing.T) {
	// Rule order fires high (missing company) before several mediums; the
	// final severity must stay high.
	report := DetectAnomalies(&AnomalyInput{
		Category:  strPtr("internship"),
		ApplyLink: strPtr("https://example.com/apply"),
		Subject:   "Apply now",
	}, anomalyNow)

	if report.Severity != SeverityHigh {
		t.Errorf("expected severity to stay high, got %s", report.Severity)
	}
	if len(report.Anomalies) < 2 {
		t.Fatalf("expected multiple anomalies, got %v", report.Anomalies)
	}
}

func TestDetectAnomalies_StaleAndFarDeadlines(t *testing.T) {
	past := anomalyNow.AddDate(0, 0, -60)
	report := DetectAnomalies(&AnomalyInput{
		Category: strPtr("announcement"),
		Deadline: &past,
	}, anomalyNow)
	if len(report.Anomalies) != 1 || report.Anomalies[0] != "Deadline is more than 30 days in the past" {
		t.Errorf("expected stale deadline anomaly, got %v", report.Anomalies)
	}
	if report.Severity != SeverityLow {
		t.Errorf("expected low severity, got %s", report.Severity)
	}
	if report.RequiresReview {
		t.Error("single low anomaly must not flag review")
	}

	far := anomalyNow.AddDate(2, 0, 0)
	report = DetectAnomalies(&AnomalyInput{
		Category: strPtr("announcement"),
		Deadline: &far,
	}, anomalyNow)
	if len(report.Anomalies) != 1 || report.Anomalies[0] != "Deadline is more than 1 year in the future" {
		t.Errorf("expected far deadline anomaly, got %v", report.Anomalies)
	}
}

func TestDetectAnomalies_MiscategorizationHints(t *testing.T) {
	report := DetectAnomalies(&AnomalyInput{
		Category:  strPtr("job offer"),
		Company:   strPtr("Acme Corp"),
		Role:      strPtr("SDE"),
		ApplyLink: strPtr("https://example.com/apply"),
		Subject:   "Intern positions open at Acme",
	}, anomalyNow)
	if len(report.Anomalies) != 1 || !strings.Contains(report.Anomalies[0], `"intern"`) {
		t.Errorf("expected intern miscategorization anomaly, got %v", report.Anomalies)
	}

	// "international" must not trigger the intern rule.
	report = DetectAnomalies(&AnomalyInput{
		Category:  strPtr("job offer"),
		Company:   strPtr("Acme Corp"),
		Role:      strPtr("SDE"),
		ApplyLink: strPtr("https://example.com/apply"),
		Subject:   "International office roles at Acme",
	}, anomalyNow)
	if report.HasAnomaly {
		t.Errorf("expected clean report, got %v", report.Anomalies)
	}
}

func TestDetectAnomalies_InvalidApplyLink(t *testing.T) {
	report := DetectAnomalies(&AnomalyInput{
		Category:  strPtr("announcement"),
		Company:   strPtr("Acme Corp"),
		ApplyLink: strPtr("not a link"),
	}, anomalyNow)
	if len(report.Anomalies) != 1 || report.Anomalies[0] != "Apply link appears to be invalid URL" {
		t.Errorf("expected invalid URL anomaly, got %v", report.Anomalies)
	}

	// A www. link is normalized before validation.
	report = DetectAnomalies(&AnomalyInput{
		Category:  strPtr("announcement"),
		Company:   strPtr("Acme Corp"),
		ApplyLink: strPtr("www.example.com/apply"),
	}, anomalyNow)
	if report.HasAnomaly {
		t.Errorf("expected www link to be valid, got %v", report.Anomalies)
	}
}

func TestDetectAnomalies_CleanEmail(t *testing.T) {
	report := DetectAnomalies(&AnomalyInput{
		Category: strPtr("announcement"),
		Subject:  "Weekly placement digest",
	}, anomalyNow)

	if report.HasAnomaly {
		t.Fatalf("expected no anomalies, got %v", report.Anomalies)
	}
	if report.RequiresReview {
		t.Error("clean email must not flag review")
	}
	if got := FormatAnomalyReport(report); got != "No anomalies detected" {
		t.Errorf("unexpected format: %q", got)
	}
}

func TestDetectAnomalies_MissingCategory(t *testing.T) {
	report := DetectAnomalies(&AnomalyInput{}, anomalyNow)
	if len(report.Anomalies) != 1 || report.Anomalies[0] != "No category assigned to email" {
		t.Errorf("expected missing category anomaly, got %v", report.Anomalies)
	}
}

func TestFormatAnomalyReport(t *testing.T) {
	report := &AnomalyReport{
		HasAnomaly:     true,
		Anomalies:      []string{"first", "second"},
		Severity:       SeverityHigh,
		RequiresReview: true,
	}

	got := FormatAnomalyReport(report)
	if !strings.HasPrefix(got, "[HIGH] 2 anomaly(ies) detected") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "\n  1. first") || !strings.Contains(got, "\n  2. second") {
		t.Errorf("expected numbered list, got %q", got)
	}
	if !strings.Contains(got, "!! REQUIRES HUMAN REVIEW") {
		t.Errorf("expected review footer, got %q", got)
	}
}
