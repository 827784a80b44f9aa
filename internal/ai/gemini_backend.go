package ai

import (
	"context"
	"fmt"
	"time"

	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/types"
	"candidly/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// GeminiBackend implements Backend for Google Gemini
type GeminiBackend struct {
	client *genai.Client
	cfg    config.GeminiConfig
	logger *errors.Logger
}

var _ Backend = (*GeminiBackend)(nil)

// screening transcripts discuss arbitrary subjects; blocking would drop
// legitimate candidate answers
var geminiSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// NewGeminiBackend creates the Gemini client. It fails without an API key.
func NewGeminiBackend(cfg config.GeminiConfig, logger *errors.Logger) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "Gemini API key is not configured", nil)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(cfg.Timeout),
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	return &GeminiBackend{client: client, cfg: cfg, logger: logger}, nil
}

func (g *GeminiBackend) Name() string { return config.BackendGemini }

// Available checks the readiness of the configured model
func (g *GeminiBackend) Available(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := g.client.Models.Get(checkCtx, g.cfg.Model, &genai.GetModelConfig{})
	if err != nil {
		g.logger.Warn("Model availability check failed",
			"model", g.cfg.Model,
			"provider", g.Name(),
			"error", err.Error())
		return err
	}

	g.logger.Debug("Model availability check successful",
		"model", g.cfg.Model,
		"display_name", model.DisplayName,
		"version", model.Version)
	return nil
}

// Generate runs one GenerateContent call with tracing.
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (*Response, error) {
	tracer := otel.Tracer("candidly.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", g.Name()),
		attribute.String("ai.model", g.cfg.Model),
		attribute.Int("input.prompt_length", len(req.Prompt)),
		attribute.Int("input.history_length", len(req.History)),
	)

	genaiConfig := &genai.GenerateContentConfig{
		SafetySettings:  geminiSafetySettings,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.System != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		genaiConfig.ResponseMIMEType = "application/json"
	}

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, geminiContents(req), genaiConfig)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Gemini generate content failed", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		err := fmt.Errorf("gemini response has no candidates (rejected by policy)")
		if result.PromptFeedback != nil {
			err = fmt.Errorf("gemini response rejected by policy: %s", result.PromptFeedback.BlockReason)
		}
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Gemini returned no content", err)
	}

	text := result.Text()
	g.logger.Debug("Gemini response received",
		"model", g.cfg.Model,
		"response_preview", utils.Truncate(text, 200))

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))

	return &Response{Text: text, Usage: usage}, nil
}

// geminiContents maps history to user/model turns and appends the prompt.
func geminiContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
