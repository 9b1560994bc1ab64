package openai

import (
	"github.com/auramail/placement-ingest/internal/config"
	"github.com/auramail/placement-ingest/internal/core"
	"github.com/auramail/placement-ingest/internal/utils"
	"github.com/sashabaranov/go-openai"
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

// CreateFieldExtractor creates a new OpenAI-backed field extractor
func (f *Factory) CreateFieldExtractor() (core.FieldExtractor, error) {
	openaiCfg := f.cfg.GetOpenAI()

	var client *openai.Client
	if openaiCfg.APIKey != "" {
		client = openai.NewClient(openaiCfg.APIKey)
	} else {
		f.logger.Warn("OpenAI API key not set, extraction will fall back to heuristics")
	}

	return NewExtractor(
		client,
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		openaiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
