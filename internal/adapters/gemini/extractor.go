package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/auramail/placement-ingest/internal/core"
	"github.com/auramail/placement-ingest/internal/metrics"
	"github.com/auramail/placement-ingest/internal/utils"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Extractor is an implementation of the FieldExtractor interface using Google Gemini
type Extractor struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewExtractor creates a new Gemini extractor
func NewExtractor(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Extractor, error) {
	if apiKey == "" {
		// Not configured; ExtractFields reports this per call
		return &Extractor{
			modelName:     modelName,
			maxBodySize:   maxBodySize,
			logger:        logger,
			textProcessor: textProcessor,
		}, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(core.ExtractionSystemPrompt)},
	}

	return &Extractor{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (c *Extractor) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ExtractFields extracts structured placement fields from an email
func (c *Extractor) ExtractFields(ctx context.Context, email *core.EmailContent) (*core.ExtractedFields, error) {
	if c.client == nil {
		return nil, core.ErrNotConfigured
	}

	trimmed := *email
	trimmed.Body = c.textProcessor.ProcessText(email.Body, c.maxBodySize)

	prompt := core.BuildExtractionPrompt(&trimmed)

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		metrics.RecordLLMRequest("gemini", "error", time.Since(start))
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	metrics.RecordLLMRequest("gemini", "ok", time.Since(start))

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	fields, err := core.ParseExtractionJSON(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	c.logger.Debug("Gemini extraction complete",
		zap.String("model", c.modelName))

	return fields, nil
}
