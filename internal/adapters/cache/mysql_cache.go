package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/core"
)

// MySQLCache is a MySQL implementation of the ExtractionCache interface
type MySQLCache struct {
	db       *sql.DB
	ttl      time.Duration
	logger   *zap.Logger
	trimFreq time.Duration
	stopCh   chan struct{}
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, ttl time.Duration, trimFreq time.Duration, logger *zap.Logger) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS extraction_cache (
			cache_key VARCHAR(255) PRIMARY KEY,
			fields TEXT NOT NULL,
			expires_at TIMESTAMP,
			INDEX idx_cache_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:       db,
		ttl:      ttl,
		logger:   logger,
		trimFreq: trimFreq,
		stopCh:   make(chan struct{}),
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves cached extraction results for a key
func (c *MySQLCache) Get(ctx context.Context, key string) (*core.ExtractedFields, bool) {
	var fieldsJSON string

	err := c.db.QueryRowContext(ctx, `
		SELECT fields
		FROM extraction_cache
		WHERE cache_key = ? AND expires_at > NOW()
	`, key).Scan(&fieldsJSON)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false
		}
		c.logger.Error("Failed to query cache", zap.Error(err))
		return nil, false
	}

	var fields core.ExtractedFields
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		c.logger.Error("Failed to unmarshal cached fields", zap.Error(err))
		return nil, false
	}

	return &fields, true
}

// Set stores extraction results for a key
func (c *MySQLCache) Set(ctx context.Context, key string, fields *core.ExtractedFields) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		c.logger.Error("Failed to marshal fields for cache", zap.Error(err))
		return
	}

	expiresAt := time.Now().Add(c.ttl)

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO extraction_cache (cache_key, fields, expires_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE fields = VALUES(fields), expires_at = VALUES(expires_at)
	`, key, string(fieldsJSON), expiresAt)

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err))
	}
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM extraction_cache
		WHERE expires_at <= NOW()
	`)

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MySQLCache) startCleanupTask() {
	ticker := time.NewTicker(c.trimFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
