package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

// mockExtractor implements FieldExtractor for testing.
type mockExtractor struct {
	fields *ExtractedFields
	err    error
	calls  int
}

func (m *mockExtractor) ExtractFields(_ context.Context, _ *EmailContent) (*ExtractedFields, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.fields, nil
}

// mapCache is a trivial in-memory ExtractionCache for testing.
type mapCache struct {
	entries map[string]*ExtractedFields
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*ExtractedFields)}
}

func (c *mapCache) Get(_ context.Context, key string) (*ExtractedFields, bool) {
	fields, ok := c.entries[key]
	return fields, ok
}

func (c *mapCache) Set(_ context.Context, key string, fields *ExtractedFields) {
	c.sets++
	c.entries[key] = fields
}

func (c *mapCache) Stop() {}

func TestStringList_UnmarshalJSON(t *testing.T) {
	var fields ExtractedFields
	if err := json.Unmarshal([]byte(`{"otherLinks": "https://example.com"}`), &fields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields.OtherLinks) != 1 || fields.OtherLinks[0] != "https://example.com" {
		t.Errorf("expected single-element list, got %v", fields.OtherLinks)
	}

	if err := json.Unmarshal([]byte(`{"otherLinks": ["a", "b"]}`), &fields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields.OtherLinks) != 2 {
		t.Errorf("expected two elements, got %v", fields.OtherLinks)
	}
}

func TestCacheKey(t *testing.T) {
	key := CacheKey("subject", "snippet")
	if key != "subject: snippet" {
		t.Errorf("unexpected key: %q", key)
	}

	long := strings.Repeat("x", 200)
	key = CacheKey(long, "snippet")
	if len(key) != 100 {
		t.Errorf("expected key capped at 100 bytes, got %d", len(key))
	}
}

func TestNormalizeSentinels(t *testing.T) {
	fields := &ExtractedFields{
		Summary:  strPtr("Real summary"),
		Category: strPtr("null"),
		Company:  strPtr("N/A"),
		Role:     strPtr("not mentioned"),
		Deadline: strPtr("None"),
		Salary:   strPtr(""),
	}

	NormalizeSentinels(fields)

	if fields.Summary == nil || *fields.Summary != "Real summary" {
		t.Error("real value must survive normalization")
	}
	for name, field := range map[string]*string{
		"category": fields.Category,
		"company":  fields.Company,
		"role":     fields.Role,
		"deadline": fields.Deadline,
		"salary":   fields.Salary,
	} {
		if field != nil {
			t.Errorf("%s: expected nil after normalization, got %q", name, *field)
		}
	}
}

func TestAnalyze_SuccessNormalizesAndCaches(t *testing.T) {
	extractor := &mockExtractor{fields: &ExtractedFields{
		Summary:  strPtr("Acme internship drive"),
		Category: strPtr("internship"),
		Company:  strPtr("null"),
	}}
	cache := newMapCache()
	svc := NewExtractionService(extractor, cache, zap.NewNop(), true)

	email := &EmailContent{Subject: "Acme drive", Snippet: "snippet"}
	fields, fallback := svc.Analyze(context.Background(), email)

	if fallback {
		t.Error("successful extraction must not be a fallback")
	}
	if fields.Company != nil {
		t.Error("sentinel company must be normalized to nil")
	}
	if cache.sets != 1 {
		t.Errorf("expected one cache write, got %d", cache.sets)
	}

	// Second call must be served from cache.
	svc.Analyze(context.Background(), email)
	if extractor.calls != 1 {
		t.Errorf("expected extractor called once, got %d", extractor.calls)
	}
}

func TestAnalyze_NotConfiguredFallback(t *testing.T) {
	extractor := &mockExtractor{err: ErrNotConfigured}
	svc := NewExtractionService(extractor, newMapCache(), zap.NewNop(), true)

	fields, fallback := svc.Analyze(context.Background(), &EmailContent{Subject: "Short subject"})

	if !fallback {
		t.Fatal("expected fallback")
	}
	if fields.Deadline != nil {
		t.Errorf("not-configured fallback must carry nil deadline, got %q", *fields.Deadline)
	}
	if fields.Category == nil || *fields.Category != "misc" {
		t.Errorf("expected misc category, got %v", fields.Category)
	}
	if fields.Summary == nil || *fields.Summary != "Short subject" {
		t.Errorf("expected subject as summary, got %v", fields.Summary)
	}
}

func TestAnalyze_ErrorFallback(t *testing.T) {
	extractor := &mockExtractor{err: errors.New("provider exploded")}
	cache := newMapCache()
	svc := NewExtractionService(extractor, cache, zap.NewNop(), true)

	fields, fallback := svc.Analyze(context.Background(), &EmailContent{Subject: "Oops"})

	if !fallback {
		t.Fatal("expected fallback")
	}
	if fields.Deadline == nil || *fields.Deadline != FallbackDeadline {
		t.Errorf("error fallback must carry the deadline placeholder, got %v", fields.Deadline)
	}
	// The fallback is cached like a real result.
	if cache.sets != 1 {
		t.Errorf("expected fallback to be cached, got %d writes", cache.sets)
	}
}

func TestFallbackSummaryShapes(t *testing.T) {
	extractor := &mockExtractor{err: ErrNotConfigured}
	svc := NewExtractionService(extractor, newMapCache(), zap.NewNop(), false)

	longSubject := "This subject is much longer than thirty characters total"
	fields, _ := svc.Analyze(context.Background(), &EmailContent{Subject: longSubject})
	want := longSubject[:27] + "..."
	if fields.Summary == nil || *fields.Summary != want {
		t.Errorf("expected %q, got %v", want, fields.Summary)
	}

	fields, _ = svc.Analyze(context.Background(), &EmailContent{})
	if fields.Summary == nil || *fields.Summary != "Unknown email" {
		t.Errorf("expected Unknown email, got %v", fields.Summary)
	}
}

func TestFallbackSummary_MultiByteSubject(t *testing.T) {
	extractor := &mockExtractor{err: ErrNotConfigured}
	svc := NewExtractionService(extractor, newMapCache(), zap.NewNop(), false)

	// 31 two-byte runes: a byte-indexed cut would split the 14th rune.
	subject := strings.Repeat("é", 31)
	fields, _ := svc.Analyze(context.Background(), &EmailContent{Subject: subject})

	want := strings.Repeat("é", 27) + "..."
	if fields.Summary == nil || *fields.Summary != want {
		t.Errorf("expected %q, got %v", want, fields.Summary)
	}
	if !utf8.ValidString(*fields.Summary) {
		t.Error("fallback summary must be valid UTF-8")
	}
}

func TestAnalyze_CacheDisabled(t *testing.T) {
	extractor := &mockExtractor{fields: &ExtractedFields{Summary: strPtr("s")}}
	cache := newMapCache()
	svc := NewExtractionService(extractor, cache, zap.NewNop(), false)

	email := &EmailContent{Subject: "a", Snippet: "b"}
	svc.Analyze(context.Background(), email)
	svc.Analyze(context.Background(), email)

	if extractor.calls != 2 {
		t.Errorf("expected extractor called twice with cache disabled, got %d", extractor.calls)
	}
	if cache.sets != 0 {
		t.Errorf("expected no cache writes, got %d", cache.sets)
	}
}
