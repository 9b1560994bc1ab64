package gemini

import (
	"github.com/auramail/placement-ingest/internal/config"
	"github.com/auramail/placement-ingest/internal/core"
	"github.com/auramail/placement-ingest/internal/utils"
	"go.uber.org/zap"
)

// Factory creates new instances of Extractor
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Extractor instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateFieldExtractor creates a new Gemini-backed field extractor
func (f *Factory) CreateFieldExtractor() (core.FieldExtractor, error) {
	geminiCfg := f.cfg.GetGemini()

	if geminiCfg.APIKey == "" {
		f.logger.Warn("Gemini API key not set, extraction will fall back to heuristics")
	}

	return NewExtractor(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		geminiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}
