package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/auramail/placement-ingest/internal/core"
)

// scanReviewRow builds a PlacementRecord from a review-queue row. Both SQL
// backends select the same column list so they share this scanner.
func scanReviewRow(rows *sql.Rows) (*core.PlacementRecord, error) {
	var (
		rec        core.PlacementRecord
		subject    sql.NullString
		sender     sql.NullString
		snippet    sql.NullString
		company    sql.NullString
		role       sql.NullString
		deadline   sql.NullTime
		applyLink  sql.NullString
		otherLinks sql.NullString
		summary    sql.NullString
		salary     sql.NullString
		location   sql.NullString
		anomalies  sql.NullString
		severity   sql.NullString
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)

	err := rows.Scan(
		&rec.UserID, &rec.GmailMessageID, &subject, &sender, &snippet,
		&rec.Category,
		&company, &role, &deadline, &applyLink, &otherLinks,
		&summary, &salary, &location,
		&rec.Anomaly.HasAnomaly, &anomalies, &severity,
		&rec.Anomaly.RequiresReview,
		&rec.Important, &reviewedBy, &reviewedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan placement record: %w", err)
	}

	rec.Subject = subject.String
	rec.Sender = sender.String
	rec.Snippet = snippet.String

	rec.Company = nullableString(company)
	rec.Role = nullableString(role)
	rec.ApplyLink = nullableString(applyLink)
	rec.Summary = nullableString(summary)
	rec.Salary = nullableString(salary)
	rec.Location = nullableString(location)
	rec.ReviewedBy = nullableString(reviewedBy)

	if deadline.Valid {
		t := deadline.Time
		rec.Deadline = &t
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		rec.ReviewedAt = &t
	}
	if severity.Valid {
		rec.Anomaly.Severity = core.Severity(severity.String)
	}
	if otherLinks.Valid && otherLinks.String != "" {
		if err := json.Unmarshal([]byte(otherLinks.String), &rec.OtherLinks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal other links: %w", err)
		}
	}
	if anomalies.Valid && anomalies.String != "" {
		if err := json.Unmarshal([]byte(anomalies.String), &rec.Anomaly.Anomalies); err != nil {
			return nil, fmt.Errorf("failed to unmarshal anomalies: %w", err)
		}
	}

	return &rec, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
