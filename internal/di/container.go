package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/adapters/httpapi"
	"github.com/auramail/placement-ingest/internal/config"
	"github.com/auramail/placement-ingest/internal/core"
	"github.com/auramail/placement-ingest/internal/factory"
	"github.com/auramail/placement-ingest/internal/locks"
	"github.com/auramail/placement-ingest/internal/logging"
	"github.com/auramail/placement-ingest/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register field extractor
	if err := container.Provide(func(f *factory.LLMFactory) (core.FieldExtractor, error) {
		return f.CreateFieldExtractor()
	}); err != nil {
		return nil, err
	}

	// Register extraction cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.ExtractionCache, error) {
		return f.CreateExtractionCache()
	}); err != nil {
		return nil, err
	}

	// Register extraction service
	if err := container.Provide(func(
		extractor core.FieldExtractor,
		cache core.ExtractionCache,
		logger *zap.Logger,
		f *factory.CacheFactory,
	) *core.ExtractionService {
		return core.NewExtractionService(extractor, cache, logger, f.IsCacheEnabled())
	}); err != nil {
		return nil, err
	}

	// Register placement store
	if err := container.Provide(func(f *factory.StoreFactory) (core.PlacementStore, error) {
		return f.CreatePlacementStore()
	}); err != nil {
		return nil, err
	}

	// Register mail provider factory
	if err := container.Provide(func(f *factory.MailFactory) (core.MailProviderFactory, error) {
		return f.CreateMailProviderFactory()
	}); err != nil {
		return nil, err
	}

	// Register sync locker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.SyncLocker, error) {
		ttl, err := cfg.GetDuration("ingest.lease_ttl")
		if err != nil {
			return nil, fmt.Errorf("invalid lease TTL: %w", err)
		}
		return locks.NewLeaseLocker(ttl, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register ingestion config
	if err := container.Provide(buildIngestionConfig); err != nil {
		return nil, err
	}

	// Register ingestion service
	if err := container.Provide(core.NewIngestionService); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(
		cfg *config.Config,
		ingestion *core.IngestionService,
		store core.PlacementStore,
		logger *zap.Logger,
	) *httpapi.Server {
		return httpapi.NewServer(cfg.GetString("server.listen_address"), ingestion, store, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// buildIngestionConfig assembles the ingestion tunables from configuration
func buildIngestionConfig(cfg *config.Config) (core.IngestionConfig, error) {
	messageDelay, err := cfg.GetDuration("ingest.message_delay")
	if err != nil {
		return core.IngestionConfig{}, fmt.Errorf("invalid message delay: %w", err)
	}
	batchDelay, err := cfg.GetDuration("ingest.batch_delay")
	if err != nil {
		return core.IngestionConfig{}, fmt.Errorf("invalid batch delay: %w", err)
	}
	retryBaseDelay, err := cfg.GetDuration("ingest.retry_base_delay")
	if err != nil {
		return core.IngestionConfig{}, fmt.Errorf("invalid retry base delay: %w", err)
	}
	aiTimeout, err := cfg.GetDuration("ingest.ai_timeout")
	if err != nil {
		return core.IngestionConfig{}, fmt.Errorf("invalid AI timeout: %w", err)
	}

	gmailCfg := cfg.GetGmail()

	return core.IngestionConfig{
		DefaultQuery:   gmailCfg.DefaultQuery,
		MaxResults:     gmailCfg.MaxResults,
		BatchSize:      cfg.GetInt("ingest.batch_size"),
		MessageDelay:   messageDelay,
		BatchDelay:     batchDelay,
		MaxRetries:     cfg.GetInt("ingest.max_retries"),
		RetryBaseDelay: retryBaseDelay,
		AITimeout:      aiTimeout,
		MaxBodyLength:  cfg.GetInt("ingest.max_body_length"),
	}, nil
}
