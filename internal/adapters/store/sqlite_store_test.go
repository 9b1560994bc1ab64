package store

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(userID, messageID string) *core.PlacementRecord {
	company := "Acme Corp"
	deadline := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	return &core.PlacementRecord{
		UserID:         userID,
		GmailMessageID: messageID,
		Subject:        "[Acme Corp] SDE Internship",
		Sender:         "placements@college.edu",
		Snippet:        "apply soon",
		Body:           "full body",
		Category:       "internship",
		Company:        &company,
		Deadline:       &deadline,
		OtherLinks:     []string{"https://example.com/info"},
		Anomaly: core.AnomalyReport{
			HasAnomaly:     true,
			Anomalies:      []string{"Internship posting missing application deadline"},
			Severity:       core.SeverityHigh,
			RequiresReview: true,
		},
		CreatedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteStore_SaveAndExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx, "user-1", "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("message must not exist before save")
	}

	if err := s.SavePlacement(ctx, sampleRecord("user-1", "m1")); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	exists, err = s.Exists(ctx, "user-1", "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("message must exist after save")
	}
}

func TestSQLiteStore_ReviewQueueCarriesEmailHeaders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePlacement(ctx, sampleRecord("user-1", "m1")); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	records, err := s.ReviewQueue(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("failed to query review queue: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Subject != "[Acme Corp] SDE Internship" {
		t.Errorf("review queue row must carry the subject, got %q", rec.Subject)
	}
	if rec.Sender != "placements@college.edu" {
		t.Errorf("review queue row must carry the sender, got %q", rec.Sender)
	}
	if rec.Snippet != "apply soon" {
		t.Errorf("review queue row must carry the snippet, got %q", rec.Snippet)
	}
	if rec.Company == nil || *rec.Company != "Acme Corp" {
		t.Errorf("unexpected company: %v", rec.Company)
	}
	if rec.Anomaly.Severity != core.SeverityHigh || !rec.Anomaly.RequiresReview {
		t.Errorf("unexpected anomaly verdict: %+v", rec.Anomaly)
	}
	if len(rec.Anomaly.Anomalies) != 1 {
		t.Errorf("unexpected anomalies: %v", rec.Anomaly.Anomalies)
	}
	if len(rec.OtherLinks) != 1 {
		t.Errorf("unexpected other links: %v", rec.OtherLinks)
	}
}

func TestSQLiteStore_MarkReviewedRemovesFromQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePlacement(ctx, sampleRecord("user-1", "m1")); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	if err := s.MarkReviewed(ctx, "user-1", "m1", "reviewer@college.edu"); err != nil {
		t.Fatalf("failed to mark reviewed: %v", err)
	}

	records, err := s.ReviewQueue(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("failed to query review queue: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("reviewed record must leave the queue, got %d rows", len(records))
	}

	if err := s.MarkReviewed(ctx, "user-1", "no-such-message", "r"); err == nil {
		t.Error("expected error for unknown message")
	}
}

func TestSQLiteStore_DeleteOlderThanKeepsImportant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := sampleRecord("user-1", "old")
	old.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	kept := sampleRecord("user-1", "kept")
	kept.CreatedAt = old.CreatedAt
	kept.Important = true

	for _, rec := range []*core.PlacementRecord{old, kept} {
		if err := s.SavePlacement(ctx, rec); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
	}

	deleted, err := s.DeleteOlderThan(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	exists, err := s.Exists(ctx, "user-1", "kept")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("important record must survive retention")
	}
	exists, err = s.Exists(ctx, "user-1", "old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expired record must be deleted")
	}
}
