package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/adapters/gmailapi"
	"github.com/auramail/placement-ingest/internal/config"
	"github.com/auramail/placement-ingest/internal/core"
)

// MailFactory creates mail provider factories based on configuration
type MailFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailFactory creates a new mail factory
func NewMailFactory(cfg *config.Config, logger *zap.Logger) *MailFactory {
	return &MailFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailProviderFactory creates the provider factory ingestion runs use
// to bind a mailbox client to each user's token.
func (f *MailFactory) CreateMailProviderFactory() (core.MailProviderFactory, error) {
	maxPartDepth := f.cfg.GetInt("ingest.max_part_depth")
	if maxPartDepth <= 0 {
		return nil, fmt.Errorf("invalid max part depth: %d", maxPartDepth)
	}
	return gmailapi.NewFactory(maxPartDepth, f.logger), nil
}
