package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIBackend calls an OpenAI-compatible chat completions endpoint
type OpenAIBackend struct {
	cfg    config.OpenAIConfig
	client *http.Client
	logger *errors.Logger
}

var _ Backend = (*OpenAIBackend)(nil)

// NewOpenAIBackend fails without an API key so the registry caches the
// failure instead of sending unauthenticated requests.
func NewOpenAIBackend(cfg config.OpenAIConfig, logger *errors.Logger) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "OpenAI API key is not configured", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIBackend{cfg: cfg, client: newHTTPClient(cfg.Timeout), logger: logger}, nil
}

func (o *OpenAIBackend) Name() string { return config.BackendOpenAI }

// Available only checks configuration; listing models costs a request per probe.
func (o *OpenAIBackend) Available(ctx context.Context) error {
	if o.cfg.APIKey == "" {
		return fmt.Errorf("openai api key missing")
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float32          `json:"temperature,omitempty"`
	MaxTokens      int32             `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

func (o *OpenAIBackend) Generate(ctx context.Context, req Request) (*Response, error) {
	tracer := otel.Tracer("candidly.ai.openai")
	ctx, span := tracer.Start(ctx, "openai.chat_completion")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", o.Name()),
		attribute.String("ai.model", o.cfg.Model),
		attribute.Int("input.history_length", len(req.History)),
	)

	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.History {
		role := "user"
		if m.Role == types.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	var out chatCompletionResponse
	headers := map[string]string{"Authorization": "Bearer " + o.cfg.APIKey}
	if err := postJSON(ctx, o.client, o.Name(), o.cfg.BaseURL+"/v1/chat/completions", headers, body, &out); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, err
	}
	if len(out.Choices) == 0 {
		err := fmt.Errorf("openai returned no choices")
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("success", true), attribute.Int64("ai.tokens.total", out.Usage.TotalTokens))
	return &Response{
		Text: out.Choices[0].Message.Content,
		Usage: &TokenUsage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
	}, nil
}
