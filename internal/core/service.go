package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/metrics"
)

// snippetLimit bounds the snippet stored on the record.
const snippetLimit = 500

// IngestionConfig carries the tunables of one ingestion service.
type IngestionConfig struct {
	DefaultQuery   string
	MaxResults     int64
	BatchSize      int
	MessageDelay   time.Duration
	BatchDelay     time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	AITimeout      time.Duration
	MaxBodyLength  int
}

// IngestionService is the ingestion orchestrator: it lists candidate
// messages, runs extraction and anomaly detection, and persists exactly one
// record per (user, message) identity.
type IngestionService struct {
	mailFactory MailProviderFactory
	extraction  *ExtractionService
	store       PlacementStore
	locks       SyncLocker
	logger      *zap.Logger
	cfg         IngestionConfig

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(
	mailFactory MailProviderFactory,
	extraction *ExtractionService,
	store PlacementStore,
	locks SyncLocker,
	logger *zap.Logger,
	cfg IngestionConfig,
) *IngestionService {
	return &IngestionService{
		mailFactory: mailFactory,
		extraction:  extraction,
		store:       store,
		locks:       locks,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Sync fetches and ingests placement mail for one user. It returns aggregate
// counts even under partial failure; a second concurrent run for the same
// user is rejected immediately with ErrSyncInProgress.
func (s *IngestionService) Sync(ctx context.Context, userID, accessToken, queryOverride string) (*SyncStats, error) {
	if userID == "" || accessToken == "" {
		return nil, fmt.Errorf("user ID and access token are required")
	}

	if !s.locks.Acquire(userID) {
		metrics.RecordSyncRun("rejected")
		return nil, ErrSyncInProgress
	}
	defer s.locks.Release(userID)

	s.logger.Info("Starting email fetch", zap.String("user_id", userID))

	mail, err := s.mailFactory.ForToken(ctx, accessToken)
	if err != nil {
		metrics.RecordSyncRun("failed")
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	query := queryOverride
	if query == "" {
		query = s.cfg.DefaultQuery
	}

	var ids []string
	err = s.retry(ctx, "list messages", func() error {
		var listErr error
		ids, listErr = mail.ListMessages(ctx, query, s.cfg.MaxResults)
		return listErr
	})
	if err != nil {
		metrics.RecordSyncRun("failed")
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	s.logger.Info("Found messages",
		zap.String("user_id", userID),
		zap.Int("count", len(ids)))

	stats := &SyncStats{Total: len(ids)}
	if len(ids) == 0 {
		metrics.RecordSyncRun("completed")
		return stats, nil
	}

	batches := batchIDs(ids, s.cfg.BatchSize)
	for batchIndex, batch := range batches {
		s.logger.Info("Processing batch",
			zap.Int("batch", batchIndex+1),
			zap.Int("total_batches", len(batches)),
			zap.Int("messages", len(batch)))

		for _, id := range batch {
			if err := ctx.Err(); err != nil {
				metrics.RecordSyncRun("failed")
				return stats, err
			}

			switch saved, err := s.processMessage(ctx, mail, userID, id); {
			case errors.Is(err, ErrReauthRequired):
				metrics.RecordSyncRun("failed")
				return stats, err
			case err != nil:
				stats.Errors++
				metrics.RecordMessage("error")
				s.logger.Error("Error processing message",
					zap.String("message_id", id),
					zap.Error(err))
			case saved:
				stats.Saved++
				metrics.RecordMessage("saved")
			default:
				stats.Skipped++
				metrics.RecordMessage("skipped")
			}

			// Rate limiting to prevent provider throttling.
			if err := s.sleep(ctx, s.cfg.MessageDelay); err != nil {
				metrics.RecordSyncRun("failed")
				return stats, err
			}
		}

		if batchIndex < len(batches)-1 {
			if err := s.sleep(ctx, s.cfg.BatchDelay); err != nil {
				metrics.RecordSyncRun("failed")
				return stats, err
			}
		}
	}

	s.logger.Info("Finished processing emails",
		zap.String("user_id", userID),
		zap.Int("saved", stats.Saved),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors))

	metrics.RecordSyncRun("completed")
	return stats, nil
}

// processMessage ingests one message. The bool result reports whether a new
// record was saved (false means the record already existed).
func (s *IngestionService) processMessage(ctx context.Context, mail MailProvider, userID, messageID string) (bool, error) {
	exists, err := s.store.Exists(ctx, userID, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing record: %w", err)
	}
	if exists {
		s.logger.Debug("Already exists", zap.String("message_id", messageID))
		return false, nil
	}

	var msg *RawMessage
	err = s.retry(ctx, "get message", func() error {
		var getErr error
		msg, getErr = mail.GetMessage(ctx, messageID)
		return getErr
	})
	if err != nil {
		return false, fmt.Errorf("failed to fetch message: %w", err)
	}

	body := truncateBody(msg.Body, s.cfg.MaxBodyLength)
	fullText := msg.Subject + " " + msg.Snippet + " " + body
	now := s.now()

	// Heuristic extraction runs unconditionally; the values back-fill any
	// field the AI leaves empty.
	company := ParseCompany(msg.Subject, fullText)
	role := ParseRole(msg.Subject, fullText)
	heuristicDeadline := ParseDeadline(fullText, now)
	applyLink := ParseApplyLink(fullText)

	aiData := s.analyzeWithTimeout(ctx, &EmailContent{
		Subject:     msg.Subject,
		Snippet:     msg.Snippet,
		Body:        orElse(body, msg.Snippet),
		Attachments: msg.Attachments,
	})

	rec := s.mergeFields(msg, aiData, company, role, heuristicDeadline, applyLink, fullText, body, now)
	rec.UserID = userID

	report := DetectAnomalies(&AnomalyInput{
		Category:  &rec.Category,
		Company:   rec.Company,
		Role:      rec.Role,
		Deadline:  rec.Deadline,
		ApplyLink: rec.ApplyLink,
		Salary:    rec.Salary,
		Subject:   msg.Subject,
		Body:      body,
	}, now)
	rec.Anomaly = *report

	if report.HasAnomaly {
		metrics.RecordAnomaly(string(report.Severity))
		s.logger.Info("Anomalies detected",
			zap.String("message_id", messageID),
			zap.String("report", FormatAnomalyReport(report)))
	}

	if err := s.store.SavePlacement(ctx, rec); err != nil {
		return false, fmt.Errorf("failed to save placement record: %w", err)
	}

	s.logger.Info("Saved placement record",
		zap.String("message_id", messageID),
		zap.String("subject", truncateForLog(msg.Subject, 60)),
		zap.String("category", rec.Category))
	return true, nil
}

// analyzeWithTimeout races AI extraction against a fixed budget independent
// of the provider client's own timeout. On timeout the message continues
// with heuristic values only; the in-flight call is left to finish and warm
// the cache.
func (s *IngestionService) analyzeWithTimeout(ctx context.Context, content *EmailContent) *ExtractedFields {
	resultCh := make(chan *ExtractedFields, 1)
	go func() {
		fields, _ := s.extraction.Analyze(ctx, content)
		resultCh <- fields
	}()

	select {
	case fields := <-resultCh:
		return fields
	case <-time.After(s.cfg.AITimeout):
		s.logger.Warn("AI analysis timeout",
			zap.String("subject", truncateForLog(content.Subject, 50)),
			zap.Duration("budget", s.cfg.AITimeout))
		return nil
	case <-ctx.Done():
		return nil
	}
}

// mergeFields combines AI output with heuristic values. The AI value wins
// per field when present; heuristics back-fill. The deadline resolution is a
// fixed four-stage cascade: parsed AI deadline, literal re-parse of the same
// string, regex heuristic, then the whole-text labeled scan.
func (s *IngestionService) mergeFields(
	msg *RawMessage,
	aiData *ExtractedFields,
	company, role *string,
	heuristicDeadline *time.Time,
	applyLink *string,
	fullText, body string,
	now time.Time,
) *PlacementRecord {
	rec := &PlacementRecord{
		GmailMessageID: msg.ID,
		Subject:        msg.Subject,
		Sender:         msg.Sender,
		Snippet:        limitString(msg.Snippet, snippetLimit),
		Body:           body,
		DateHeader:     msg.DateHeader,
		ReceivedAt:     msg.ReceivedAt,
		Attachments:    msg.Attachments,
		Category:       string(CategoryAnnouncement),
		Company:        company,
		Role:           role,
		ApplyLink:      applyLink,
		CreatedAt:      now,
	}

	var finalDeadline *time.Time

	if aiData != nil {
		if raw, err := json.Marshal(aiData); err == nil {
			rawStr := string(raw)
			rec.RawAIOutput = &rawStr
		}

		if aiData.Category != nil {
			rec.Category = *aiData.Category
		}
		rec.Company = coalesce(aiData.Company, company)
		rec.Role = coalesce(aiData.Role, role)
		rec.ApplyLink = coalesce(aiData.ApplyLink, applyLink)
		rec.Eligibility = aiData.Eligibility
		rec.Summary = aiData.Summary
		rec.Timings = aiData.Timings
		rec.Salary = aiData.Salary
		rec.Location = aiData.Location
		rec.EventDetails = aiData.EventDetails
		rec.Requirements = aiData.Requirements
		rec.Description = aiData.Description
		rec.AttachmentSummary = aiData.AttachmentSummary
		rec.OtherLinks = []string(aiData.OtherLinks)

		if aiData.Deadline != nil && *aiData.Deadline != "null" && *aiData.Deadline != FallbackDeadline {
			if parsed, ok := ParseDate(*aiData.Deadline, now); ok {
				finalDeadline = &parsed
			} else if parsed, err := dateparse.ParseAny(*aiData.Deadline); err == nil {
				finalDeadline = &parsed
			} else {
				s.logger.Warn("Could not parse AI deadline", zap.String("deadline", *aiData.Deadline))
			}
		}
	}

	if finalDeadline == nil {
		finalDeadline = heuristicDeadline
	}
	if finalDeadline == nil {
		if parsed, ok := ExtractDeadlineDate(fullText, now); ok {
			finalDeadline = &parsed
		}
	}
	rec.Deadline = finalDeadline

	return rec
}

// PurgeExpired deletes records older than the retention window unless
// flagged important. Invoked from the daemon's housekeeping ticker.
func (s *IngestionService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired records: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("Purged expired placement records", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// retry runs fn with exponential backoff. Authorization failures are never
// retried; they surface immediately so the caller can reauthorize.
func (s *IngestionService) retry(ctx context.Context, op string, fn func() error) error {
	delay := s.cfg.RetryBaseDelay
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, ErrReauthRequired) {
			return err
		}
		if attempt >= s.cfg.MaxRetries {
			return err
		}
		s.logger.Warn("Retrying operation",
			zap.String("operation", op),
			zap.Duration("delay", delay),
			zap.Int("retries_left", s.cfg.MaxRetries-attempt),
			zap.Error(err))
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay *= 2
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func batchIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

func truncateBody(body string, max int) string {
	if max <= 0 || len(body) <= max {
		return body
	}
	return body[:max] + "... [truncated]"
}

func coalesce(preferred, fallback *string) *string {
	if preferred != nil {
		return preferred
	}
	return fallback
}

func limitString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func orElse(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
