package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/auramail/placement-ingest/internal/core"
	"github.com/auramail/placement-ingest/internal/metrics"
	"github.com/auramail/placement-ingest/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Extractor is an implementation of the FieldExtractor interface using OpenAI
type Extractor struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewExtractor creates a new OpenAI extractor. A nil client marks the
// provider as not configured.
func NewExtractor(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Extractor {
	return &Extractor{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ExtractFields extracts structured placement fields from an email
func (c *Extractor) ExtractFields(ctx context.Context, email *core.EmailContent) (*core.ExtractedFields, error) {
	if c.client == nil {
		return nil, core.ErrNotConfigured
	}

	// Trim the body before building the prompt
	trimmed := *email
	trimmed.Body = c.textProcessor.ProcessText(email.Body, c.maxBodySize)

	prompt := core.BuildExtractionPrompt(&trimmed)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: core.ExtractionSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.RecordLLMRequest("openai", "error", time.Since(start))
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	metrics.RecordLLMRequest("openai", "ok", time.Since(start))

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content

	fields, err := core.ParseExtractionJSON(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	c.logger.Debug("OpenAI extraction complete",
		zap.String("model", c.modelName),
		zap.String("processing_id", resp.ID))

	return fields, nil
}
