package gmailapi

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/auramail/placement-ingest/internal/core"
)

// Factory builds Gmail providers bound to per-user access tokens.
type Factory struct {
	maxPartDepth int
	logger       *zap.Logger
}

// NewFactory creates a new factory for Gmail providers.
func NewFactory(maxPartDepth int, logger *zap.Logger) *Factory {
	return &Factory{
		maxPartDepth: maxPartDepth,
		logger:       logger,
	}
}

// ForToken builds a MailProvider authenticated with the given access token.
func (f *Factory) ForToken(ctx context.Context, accessToken string) (core.MailProvider, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return NewProvider(svc, f.maxPartDepth, f.logger), nil
}
