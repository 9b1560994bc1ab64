package core

import (
	"context"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/utils"
)

// cacheKeyLength bounds the subject+snippet fingerprint used as cache key.
const cacheKeyLength = 100

// sentinelStrings are literal placeholders some models emit instead of a
// true null. They are normalized away before any merge decision.
var sentinelStrings = map[string]struct{}{
	"":              {},
	"null":          {},
	"N/A":           {},
	"not mentioned": {},
	"None":          {},
}

// FallbackDeadline is the deadline placeholder used in the error-path
// fallback shape. Callers branch on it, so the literal matters.
const FallbackDeadline = "No deadline"

// StringList accepts either a JSON array of strings or a bare string, which
// some models produce for single-element fields.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// CacheKey builds the truncated fingerprint for one email.
func CacheKey(subject, snippet string) string {
	key := subject + ": " + snippet
	if len(key) > cacheKeyLength {
		key = key[:cacheKeyLength]
	}
	return key
}

// NormalizeSentinels replaces empty strings and sentinel placeholders with
// true nil on every nullable field.
func NormalizeSentinels(fields *ExtractedFields) {
	for _, field := range []**string{
		&fields.Summary, &fields.Category, &fields.Company, &fields.Role,
		&fields.Deadline, &fields.ApplyLink, &fields.Eligibility,
		&fields.Timings, &fields.Salary, &fields.Location,
		&fields.EventDetails, &fields.Requirements, &fields.Description,
		&fields.AttachmentSummary,
	} {
		if *field != nil {
			if _, sentinel := sentinelStrings[**field]; sentinel {
				*field = nil
			}
		}
	}
}

// ExtractionService wraps a vendor FieldExtractor with the response cache,
// sentinel normalization and the deterministic fallback behavior. It never
// returns an error: extraction failure degrades to a fallback shape, and the
// fallback is cached like a real result so a message that keeps failing does
// not keep hitting the provider within the TTL window.
type ExtractionService struct {
	extractor    FieldExtractor
	cache        ExtractionCache
	logger       *zap.Logger
	cacheEnabled bool
}

// NewExtractionService creates a new extraction service.
func NewExtractionService(
	extractor FieldExtractor,
	cache ExtractionCache,
	logger *zap.Logger,
	cacheEnabled bool,
) *ExtractionService {
	return &ExtractionService{
		extractor:    extractor,
		cache:        cache,
		logger:       logger,
		cacheEnabled: cacheEnabled,
	}
}

// Analyze extracts structured fields for one email, consulting the cache
// first. The second return value reports whether the result is a fallback.
func (s *ExtractionService) Analyze(ctx context.Context, email *EmailContent) (*ExtractedFields, bool) {
	key := CacheKey(email.Subject, email.Snippet)

	if s.cacheEnabled {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.Debug("Extraction cache hit", zap.String("key", key))
			return cached, false
		}
	}

	fields, err := s.extractor.ExtractFields(ctx, email)
	fallback := false
	switch {
	case errors.Is(err, ErrNotConfigured):
		s.logger.Warn("LLM provider not configured, skipping AI analysis")
		fields = s.fallbackFields(email, nil)
		fallback = true
	case err != nil:
		s.logger.Warn("AI extraction failed",
			zap.String("subject", truncateForLog(email.Subject, 50)),
			zap.Error(err))
		deadline := FallbackDeadline
		fields = s.fallbackFields(email, &deadline)
		fallback = true
	default:
		NormalizeSentinels(fields)
	}

	if s.cacheEnabled {
		s.cache.Set(ctx, key, fields)
	}

	return fields, fallback
}

// fallbackFields builds the deterministic stand-in result. The
// configuration-absent path carries a nil deadline; the error path carries
// the "No deadline" placeholder. Summary truncation counts runes so a
// non-ASCII subject never yields an invalid-UTF-8 summary.
func (s *ExtractionService) fallbackFields(email *EmailContent, deadline *string) *ExtractedFields {
	summary := email.Subject
	if utf8.RuneCountInString(summary) > 30 {
		summary = utils.TruncateRunes(summary, 27) + "..."
	}
	if summary == "" {
		summary = "Unknown email"
	}
	category := string(CategoryMisc)

	return &ExtractedFields{
		Summary:  &summary,
		Category: &category,
		Deadline: deadline,
	}
}

func truncateForLog(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return utils.TruncateRunes(s, max) + "..."
}
