package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/adapters/httpapi"
	"github.com/auramail/placement-ingest/internal/config"
	"github.com/auramail/placement-ingest/internal/core"
	"github.com/auramail/placement-ingest/internal/di"
)

func main() {
	// Load .env if present; real config still comes from file and env vars
	_ = godotenv.Load()

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	server *httpapi.Server,
	ingestion *core.IngestionService,
	store core.PlacementStore,
	cache core.ExtractionCache,
	extractor core.FieldExtractor,
) error {
	defer logger.Sync()

	retention, err := cfg.GetDuration("store.retention")
	if err != nil {
		return fmt.Errorf("invalid retention: %w", err)
	}
	cleanupFreq, err := cfg.GetDuration("store.cleanup_frequency")
	if err != nil {
		return fmt.Errorf("invalid cleanup frequency: %w", err)
	}

	// Retention cleanup loop
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	go runRetentionLoop(cleanupCtx, ingestion, retention, cleanupFreq, logger)

	// Start the HTTP server
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancelCleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := extractor.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close field extractor", zap.Error(err))
		}
	}

	cache.Stop()

	if err := store.Close(); err != nil {
		logger.Error("Failed to close placement store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

// runRetentionLoop periodically purges expired placement records
func runRetentionLoop(
	ctx context.Context,
	ingestion *core.IngestionService,
	retention time.Duration,
	freq time.Duration,
	logger *zap.Logger,
) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := ingestion.PurgeExpired(ctx, retention)
			if err != nil {
				logger.Error("Retention cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				logger.Info("Retention cleanup complete", zap.Int64("deleted", deleted))
			}
		case <-ctx.Done():
			return
		}
	}
}
