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

// OllamaBackend talks to a local Ollama server
type OllamaBackend struct {
	cfg        config.OllamaConfig
	client     *http.Client
	pingClient *http.Client
	logger     *errors.Logger
}

var _ Backend = (*OllamaBackend)(nil)

// NewOllamaBackend creates an Ollama backend
func NewOllamaBackend(cfg config.OllamaConfig, logger *errors.Logger) *OllamaBackend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.AvailableTimeout <= 0 {
		cfg.AvailableTimeout = 2 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OllamaBackend{
		cfg:        cfg,
		client:     newHTTPClient(cfg.Timeout),
		pingClient: newHTTPClient(cfg.AvailableTimeout),
		logger:     logger,
	}
}

func (o *OllamaBackend) Name() string { return config.BackendOllama }

// Available lists local models; any non-200 answer means the server is not usable.
func (o *OllamaBackend) Available(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := o.pingClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Backend: o.Name(), Code: resp.StatusCode}
	}
	return nil
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int64  `json:"prompt_eval_count"`
	EvalCount       int64  `json:"eval_count"`
}

// Generate calls /api/generate without streaming. Chat history is folded into
// the prompt since the generate endpoint takes a single prompt string.
func (o *OllamaBackend) Generate(ctx context.Context, req Request) (*Response, error) {
	tracer := otel.Tracer("candidly.ai.ollama")
	ctx, span := tracer.Start(ctx, "ollama.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", o.Name()),
		attribute.String("ai.model", o.cfg.Model),
		attribute.Int("input.prompt_length", len(req.Prompt)),
	)

	if !o.cfg.SkipAvailableCheck {
		if err := o.Available(ctx); err != nil {
			span.RecordError(err)
			return nil, errors.ProviderUnavailable(o.Name(), err)
		}
	}

	body := ollamaGenerateRequest{
		Model:  o.cfg.Model,
		Prompt: foldHistory(req.History, req.Prompt),
		System: req.System,
		Stream: false,
	}
	if req.JSON {
		body.Format = "json"
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		body.Options = map[string]any{}
		if req.Temperature != nil {
			body.Options["temperature"] = *req.Temperature
		}
		if req.MaxTokens > 0 {
			body.Options["num_predict"] = req.MaxTokens
		}
	}

	var out ollamaGenerateResponse
	if err := postJSON(ctx, o.client, o.Name(), o.cfg.BaseURL+"/api/generate", nil, body, &out); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, err
	}

	span.SetAttributes(attribute.Bool("success", true))
	return &Response{
		Text: out.Response,
		Usage: &TokenUsage{
			InputTokens:  out.PromptEvalCount,
			OutputTokens: out.EvalCount,
			TotalTokens:  out.PromptEvalCount + out.EvalCount,
		},
	}, nil
}

// foldHistory renders prior turns ahead of the newest message.
func foldHistory(history []types.Message, prompt string) string {
	if len(history) == 0 {
		return prompt
	}
	var b strings.Builder
	for _, m := range history {
		speaker := "Candidate"
		if m.Role == types.RoleAssistant {
			speaker = "Interviewer"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", speaker, m.Content)
	}
	b.WriteString("Candidate: ")
	b.WriteString(prompt)
	return b.String()
}
