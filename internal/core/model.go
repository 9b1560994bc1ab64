package core

import (
	"time"
)

// Category is the fixed classification assigned to a placement mail.
type Category string

const (
	CategoryInternship   Category = "internship"
	CategoryJobOffer     Category = "job offer"
	CategoryExam         Category = "exam"
	CategoryReminder     Category = "reminder"
	CategoryAnnouncement Category = "announcement"
	CategoryMisc         Category = "misc"
)

// Severity is the ordinal output of the anomaly detector.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Max returns the higher of the two severities. Rule evaluation only ever
// raises severity, never lowers it.
func (s Severity) Max(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// Attachment describes one attachment on a fetched message.
type Attachment struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachmentId"`
}

// RawMessage is one message as fetched from the mail provider. It is
// discarded after the ingestion run; only the derived record is stored.
type RawMessage struct {
	ID          string
	Subject     string
	Sender      string
	Snippet     string
	Body        string
	DateHeader  string
	Attachments []Attachment
	ReceivedAt  time.Time
}

// EmailContent is the extraction input built from a RawMessage.
type EmailContent struct {
	Subject     string
	Snippet     string
	Body        string
	Attachments []Attachment
}

// ExtractedFields is the structured output of LLM field extraction. All
// nullable fields are pointers; the JSON keys match the prompt contract.
// Deadline stays the raw string the model produced; parsing into a
// calendar date happens during the merge step.
type ExtractedFields struct {
	Summary           *string    `json:"summary"`
	Category          *string    `json:"category"`
	Company           *string    `json:"company"`
	Role              *string    `json:"role"`
	Deadline          *string    `json:"deadline"`
	ApplyLink         *string    `json:"applyLink"`
	OtherLinks        StringList `json:"otherLinks"`
	Eligibility       *string    `json:"eligibility"`
	Timings           *string    `json:"timings"`
	Salary            *string    `json:"salary"`
	Location          *string    `json:"location"`
	EventDetails      *string    `json:"eventDetails"`
	Requirements      *string    `json:"requirements"`
	Description       *string    `json:"description"`
	AttachmentSummary *string    `json:"attachmentSummary"`
}

// AnomalyInput is the merged field set the anomaly detector inspects.
type AnomalyInput struct {
	Category  *string
	Company   *string
	Role      *string
	Deadline  *time.Time
	ApplyLink *string
	Salary    *string
	Subject   string
	Body      string
}

// AnomalyReport is the detector's verdict for one message.
type AnomalyReport struct {
	HasAnomaly     bool
	Anomalies      []string
	Severity       Severity
	RequiresReview bool
}

// PlacementRecord is the persisted result for one (user, message) identity.
type PlacementRecord struct {
	UserID         string
	GmailMessageID string

	Subject    string
	Sender     string
	Snippet    string
	Body       string
	DateHeader string
	ReceivedAt time.Time

	Category          string
	Company           *string
	Role              *string
	Deadline          *time.Time
	ApplyLink         *string
	OtherLinks        []string
	Attachments       []Attachment
	Eligibility       *string
	Summary           *string
	Timings           *string
	Salary            *string
	Location          *string
	EventDetails      *string
	Requirements      *string
	Description       *string
	AttachmentSummary *string

	RawAIOutput *string
	Anomaly     AnomalyReport

	Important  bool
	ReviewedBy *string
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// SyncStats is the aggregate result of one ingestion run. It is always
// returned, even under partial failure.
type SyncStats struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
	Total   int `json:"total"`
}
