package ai

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name  string
	text  string
	err   error
	calls atomic.Int32
	last  Request
	mu    sync.Mutex
}

func (s *stubBackend) Name() string                      { return s.name }
func (s *stubBackend) Available(ctx context.Context) error { return s.err }
func (s *stubBackend) Generate(_ context.Context, req Request) (*Response, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = req
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Text: s.text, Usage: &TokenUsage{TotalTokens: 10}}, nil
}

func registryWith(backends ...*stubBackend) *Registry {
	r := NewRegistry()
	for _, b := range backends {
		r.Register(b.name, func() (Backend, error) { return b, nil })
	}
	return r
}

func testConfig(parse, score []string) *config.Config {
	return &config.Config{AI: config.AIConfig{ParseOrder: parse, ScoreOrder: score}}
}

const sampleResume = "Jane Roe\njane.roe@example.com\nSkills: Go, Kubernetes"

func TestParseResumeUsesFirstHealthyBackend(t *testing.T) {
	gemini := &stubBackend{name: "gemini", err: fmt.Errorf("quota")}
	ollama := &stubBackend{name: "ollama", text: "```json\n{\"name\":\"Jane Roe\",\"email\":\"not-an-email\",\"skills\":[\"Go\",\"Kubernetes\"],\"phone\":\"\"}\n```"}
	openai := &stubBackend{name: "openai", text: `{"name":"Wrong"}`}

	caps := NewCapabilities(registryWith(gemini, ollama, openai),
		testConfig([]string{"gemini", "ollama", "openai"}, nil), nil, errors.NewDiscardLogger(), nil)

	res := caps.ParseResume(context.Background(), sampleResume)

	assert.Equal(t, "ollama", res.Provider)
	assert.Equal(t, "Jane Roe", res.Value.Name)
	assert.Equal(t, "jane.roe@example.com", res.Value.Email, "malformed email recovered from raw text")
	assert.Equal(t, "Go, Kubernetes", types.Deref(res.Value.Skills))
	assert.Nil(t, res.Value.Phone)
	assert.EqualValues(t, 1, gemini.calls.Load())
	assert.EqualValues(t, 1, ollama.calls.Load())
	assert.EqualValues(t, 0, openai.calls.Load())
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, "gemini", res.Attempts[0].Provider)
	assert.True(t, ollama.last.JSON)
	assert.Contains(t, ollama.last.Prompt, sampleResume)
}

func TestParseResumeFallsBackToRegex(t *testing.T) {
	bad := &stubBackend{name: "gemini", text: "I cannot help with that."}
	caps := NewCapabilities(registryWith(bad), testConfig([]string{"gemini", "openai"}, nil), nil, errors.NewDiscardLogger(), nil)

	res := caps.ParseResume(context.Background(), "no contact details here at all")

	assert.Equal(t, FallbackRegex, res.Provider)
	assert.Equal(t, types.PlaceholderEmail, res.Value.Email)
	assert.Len(t, res.Attempts, 2, "unregistered backend counts as a failed attempt")
}

func TestScoreCandidate(t *testing.T) {
	profile := types.CandidateProfile{Name: "Jane", Email: "j@x.io", Skills: types.Optional("Go")}
	reqs := types.JobRequirements{Title: "Backend Engineer", Requirements: "Go, SQL"}

	tests := []struct {
		name         string
		text         string
		err          error
		wantScore    int
		wantProvider string
	}{
		{"model score", `{"score": 82, "strengths": ["Go"], "gaps": "SQL", "reasoning": "solid"}`, nil, 82, "ollama"},
		{"missing score defaults", `{"strengths": []}`, nil, 75, "ollama"},
		{"string score", `{"score": "64%"}`, nil, 64, "ollama"},
		{"out of range clamps", `{"score": 140}`, nil, 100, "ollama"},
		{"negative clamps", `{"score": -3}`, nil, 0, "ollama"},
		{"backend error falls back", "", fmt.Errorf("connection refused"), -1, FallbackSimple},
		{"garbage falls back", "not json", nil, -1, FallbackSimple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ollama := &stubBackend{name: "ollama", text: tt.text, err: tt.err}
			caps := NewCapabilities(registryWith(ollama), testConfig(nil, []string{"ollama"}), nil, errors.NewDiscardLogger(), nil)

			res := caps.ScoreCandidate(context.Background(), profile, reqs)

			assert.Equal(t, tt.wantProvider, res.Provider)
			assert.Equal(t, tt.wantProvider, res.Value.Provider)
			if tt.wantScore >= 0 {
				assert.Equal(t, tt.wantScore, res.Value.Score)
			}
			assert.GreaterOrEqual(t, res.Value.Score, 0)
			assert.LessOrEqual(t, res.Value.Score, 100)
			assert.NotNil(t, res.Value.Strengths)
			assert.NotNil(t, res.Value.Gaps)
		})
	}
}

type fixedPrompts map[string]string

func (f fixedPrompts) Prompt(kind string) string { return f[kind] }

func TestScorePromptOverride(t *testing.T) {
	ollama := &stubBackend{name: "ollama", text: `{"score": 50}`}
	prompts := fixedPrompts{config.PromptScoreCandidate: "Rate for {{requirements}} with skills {{skills}}"}
	caps := NewCapabilities(registryWith(ollama), testConfig(nil, []string{"ollama"}), prompts, errors.NewDiscardLogger(), nil)

	caps.ScoreCandidate(context.Background(), types.CandidateProfile{}, types.JobRequirements{Title: "SRE"})

	assert.Contains(t, ollama.last.Prompt, "Position: SRE")
	assert.Contains(t, ollama.last.Prompt, "with skills N/A")
}

func TestRegistryConstructsOnce(t *testing.T) {
	var built atomic.Int32
	r := NewRegistry()
	r.Register("gemini", func() (Backend, error) {
		built.Add(1)
		return nil, fmt.Errorf("no api key")
	})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Get("gemini")
			assert.True(t, errors.HasCode(err, errors.ErrCodeProviderUnavailable))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, built.Load())

	_, err := r.Get("unknown")
	assert.True(t, errors.HasCode(err, errors.ErrCodeProviderUnavailable))
}

func TestGenerator(t *testing.T) {
	down := &stubBackend{name: "gemini", err: fmt.Errorf("503")}
	empty := &stubBackend{name: "ollama", text: "   "}
	up := &stubBackend{name: "openai", text: " Tell me about a hard bug. "}

	gen := NewGenerator(registryWith(down, empty, up), []string{"gemini", "ollama", "openai"}, errors.NewDiscardLogger(), nil)
	text, err := gen.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Tell me about a hard bug.", text)

	gen = NewGenerator(registryWith(down), []string{"gemini"}, errors.NewDiscardLogger(), nil)
	_, err = gen.Generate(context.Background(), Request{Prompt: "hi"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeProviderUnavailable))
}
