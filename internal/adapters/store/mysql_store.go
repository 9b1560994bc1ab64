package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/core"
)

// MySQLStore is a MySQL implementation of the PlacementStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn+"?parseTime=true")
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

func createMySQLTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS placement_mails (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			gmail_message_id VARCHAR(255) NOT NULL,
			category VARCHAR(32) NOT NULL,
			company TEXT,
			role TEXT,
			deadline TIMESTAMP NULL,
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
			has_anomaly BOOLEAN NOT NULL DEFAULT FALSE,
			anomalies TEXT,
			severity VARCHAR(16),
			requires_review BOOLEAN NOT NULL DEFAULT FALSE,
			important BOOLEAN NOT NULL DEFAULT FALSE,
			reviewed_by VARCHAR(255),
			reviewed_at TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE KEY uq_user_message (user_id, gmail_message_id),
			INDEX idx_placement_created_at (created_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create placement_mails table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS emails (
			user_id VARCHAR(255) NOT NULL,
			gmail_message_id VARCHAR(255) NOT NULL,
			subject TEXT,
			sender TEXT,
			snippet TEXT,
			body MEDIUMTEXT,
			date_header VARCHAR(255),
			received_at TIMESTAMP NULL,
			PRIMARY KEY (user_id, gmail_message_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create emails table: %w", err)
	}

	return nil
}

// Exists reports whether a message has already been ingested for a user
func (s *MySQLStore) Exists(ctx context.Context, userID, messageID string) (bool, error) {
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
func (s *MySQLStore) SavePlacement(ctx context.Context, rec *core.PlacementRecord) error {
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
func (s *MySQLStore) ReviewQueue(ctx context.Context, userID string, limit int) ([]*core.PlacementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.user_id, p.gmail_message_id, e.subject, e.sender, e.snippet,
			p.category, p.company, p.role, p.deadline,
			p.apply_link, p.other_links, p.summary, p.salary, p.location,
			p.has_anomaly, p.anomalies, p.severity, p.requires_review,
			p.important, p.reviewed_by, p.reviewed_at, p.created_at
		FROM placement_mails p
		JOIN emails e
			ON e.user_id = p.user_id AND e.gmail_message_id = p.gmail_message_id
		WHERE p.user_id = ? AND p.requires_review = TRUE AND p.reviewed_by IS NULL
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
func (s *MySQLStore) MarkReviewed(ctx context.Context, userID, messageID, reviewer string) error {
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
func (s *MySQLStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE e FROM emails e
		JOIN placement_mails p
			ON p.user_id = e.user_id AND p.gmail_message_id = e.gmail_message_id
		WHERE p.created_at < ? AND p.important = FALSE
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete email rows: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM placement_mails
		WHERE created_at < ? AND important = FALSE
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
