// Package store persists placement records to a relational database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/core"
)

// SQLiteStore is a SQLite implementation of the PlacementStore interface.
// The structured record and the denormalized email row are written in one
// transaction so a half-saved message can never exist.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS placement_mails (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			gmail_message_id TEXT NOT NULL,
			category TEXT NOT NULL,
			company TEXT,
			role TEXT,
			deadline TIMESTAMP,
			apply_link TEXT,
			other_links TEXT,
			attachments TEXT,
			eligibility TEXT,
			summary TEXT,
			timings TEXT,
			salary TEXT,
			location TEXT,
			event_details TEXT,
			requirements TEXT,
			description TEXT,
			attachment_summary TEXT,
			raw_ai_output TEXT,
			has_anomaly BOOLEAN NOT NULL DEFAULT 0,
			anomalies TEXT,
			severity TEXT,
			requires_review BOOLEAN NOT NULL DEFAULT 0,
			important BOOLEAN NOT NULL DEFAULT 0,
			reviewed_by TEXT,
			reviewed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, gmail_message_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create placement_mails table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS emails (
			user_id TEXT NOT NULL,
			gmail_message_id TEXT NOT NULL,
			subject TEXT,
			sender TEXT,
			snippet TEXT,
			body TEXT,
			date_header TEXT,
			received_at TIMESTAMP,
			PRIMARY KEY (user_id, gmail_message_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create emails table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_placement_created_at ON placement_mails(created_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Exists reports whether a message has already been ingested for a user
func (s *SQLiteStore) Exists(ctx context.Context, userID, messageID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM placement_mails
		WHERE user_id = ? AND gmail_message_id = ?
	`, userID, messageID).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}
	return true, nil
}

// SavePlacement writes a placement record and its email row transactionally
func (s *SQLiteStore) SavePlacement(ctx context.Context, rec *core.PlacementRecord) error {
	otherLinks, err := json.Marshal(rec.OtherLinks)
	if err != nil {
		return fmt.Errorf("failed to marshal other links: %w", err)
	}
	attachments, err := json.Marshal(rec.Attachments)
	if err != nil {
		return fmt.Errorf("failed to marshal attachments: %w", err)
	}
	anomalies, err := json.Marshal(rec.Anomaly.Anomalies)
	if err != nil {
		return fmt.Errorf("failed to marshal anomalies: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO placement_mails (
			id, user_id, gmail_message_id, category, company, role, deadline,
			apply_link, other_links, attachments, eligibility, summary,
			timings, salary, location, event_details, requirements,
			description, attachment_summary, raw_ai_output,
			has_anomaly, anomalies, severity, requires_review,
			important, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.New().String(), rec.UserID, rec.GmailMessageID, rec.Category,
		rec.Company, rec.Role, rec.Deadline, rec.ApplyLink,
		string(otherLinks), string(attachments), rec.Eligibility, rec.Summary,
		rec.Timings, rec.Salary, rec.Location, rec.EventDetails,
		rec.Requirements, rec.Description, rec.AttachmentSummary,
		rec.RawAIOutput, rec.Anomaly.HasAnomaly, string(anomalies),
		string(rec.Anomaly.Severity), rec.Anomaly.RequiresReview,
		rec.Important, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert placement record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO emails (
			user_id, gmail_message_id, subject, sender, snippet, body,
			date_header, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.UserID, rec.GmailMessageID, rec.Subject, rec.Sender,
		rec.Snippet, rec.Body, rec.DateHeader, rec.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert email row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ReviewQueue returns unreviewed records flagged for human review. The
// email row is joined in so consumers can render subject and sender.
func (s *SQLiteStore) ReviewQueue(ctx context.Context, userID string, limit int) ([]*core.PlacementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.user_id, p.gmail_message_id, e.subject, e.sender, e.snippet,
			p.category, p.company, p.role, p.deadline,
			p.apply_link, p.other_links, p.summary, p.salary, p.location,
			p.has_anomaly, p.anomalies, p.severity, p.requires_review,
			p.important, p.reviewed_by, p.reviewed_at, p.created_at
		FROM placement_mails p
		JOIN emails e
			ON e.user_id = p.user_id AND e.gmail_message_id = p.gmail_message_id
		WHERE p.user_id = ? AND p.requires_review = 1 AND p.reviewed_by IS NULL
		ORDER BY p.created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query review queue: %w", err)
	}
	defer rows.Close()

	var records []*core.PlacementRecord
	for rows.Next() {
		rec, err := scanReviewRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review queue: %w", err)
	}

	return records, nil
}

// MarkReviewed records who reviewed a flagged message
func (s *SQLiteStore) MarkReviewed(ctx context.Context, userID, messageID, reviewer string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE placement_mails
		SET reviewed_by = ?, reviewed_at = ?
		WHERE user_id = ? AND gmail_message_id = ?
	`, reviewer, time.Now().UTC(), userID, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark record reviewed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no placement record for message %s", messageID)
	}

	return nil
}

// DeleteOlderThan removes records created before the cutoff. Records marked
// important are kept regardless of age.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM emails
		WHERE (user_id, gmail_message_id) IN (
			SELECT user_id, gmail_message_id FROM placement_mails
			WHERE created_at < ? AND important = 0
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete email rows: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM placement_mails
		WHERE created_at < ? AND important = 0
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete placement records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("Deleted expired placement records", zap.Int64("deleted", deleted))
	return deleted, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
