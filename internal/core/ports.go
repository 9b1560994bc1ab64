package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured is returned by a field extractor whose provider
	// credentials are missing. The extraction service maps it to the
	// configuration-absent fallback shape.
	ErrNotConfigured = errors.New("llm provider not configured")

	// ErrReauthRequired signals an expired or invalid mailbox credential.
	// Callers must trigger reauthorization rather than retry.
	ErrReauthRequired = errors.New("reauthorization required")

	// ErrSyncInProgress is returned when an ingestion run for the same
	// user is already holding the sync lease.
	ErrSyncInProgress = errors.New("sync already in progress for user")
)

// FieldExtractor asks an LLM provider to pull structured fields out of an
// email. Implementations live in internal/adapters.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, email *EmailContent) (*ExtractedFields, error)
}

// ExtractionCache stores extraction results keyed by a truncated
// subject+snippet fingerprint. Entries expire after a TTL; implementations
// bound their size opportunistically rather than with a strict LRU.
type ExtractionCache interface {
	Get(ctx context.Context, key string) (*ExtractedFields, bool)
	Set(ctx context.Context, key string, fields *ExtractedFields)
	Stop()
}

// MailProvider lists and fetches messages from one user's mailbox.
type MailProvider interface {
	ListMessages(ctx context.Context, query string, maxResults int64) ([]string, error)
	GetMessage(ctx context.Context, id string) (*RawMessage, error)
}

// MailProviderFactory builds a MailProvider bound to one user's access token.
type MailProviderFactory interface {
	ForToken(ctx context.Context, accessToken string) (MailProvider, error)
}

// PlacementStore persists placement records. SavePlacement must write the
// structured record and the denormalized email row in one transaction.
type PlacementStore interface {
	Exists(ctx context.Context, userID, messageID string) (bool, error)
	SavePlacement(ctx context.Context, rec *PlacementRecord) error
	ReviewQueue(ctx context.Context, userID string, limit int) ([]*PlacementRecord, error)
	MarkReviewed(ctx context.Context, userID, messageID, reviewer string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// SyncLocker serializes ingestion runs per user. Acquire must fail fast for
// a held lease; leases expire so a crashed holder cannot wedge the user.
type SyncLocker interface {
	Acquire(userID string) bool
	Release(userID string)
}
