package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaBackend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"response":"{\"score\":70}","prompt_eval_count":12,"eval_count":5}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b := NewOllamaBackend(config.OllamaConfig{BaseURL: srv.URL + "/", Model: "mistral"}, errors.NewDiscardLogger())
	resp, err := b.Generate(context.Background(), Request{
		Prompt:  "score it",
		System:  "be strict",
		JSON:    true,
		History: []types.Message{{Role: types.RoleAssistant, Content: "Hello"}},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"score":70}`, resp.Text)
	assert.EqualValues(t, 17, resp.Usage.TotalTokens)
	assert.Equal(t, "mistral", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "json", got["format"])
	assert.Equal(t, "be strict", got["system"])
	assert.Equal(t, "Interviewer: Hello\n\nCandidate: score it", got["prompt"])
	assert.Nil(t, got["options"])
}

func TestOllamaBackendOptions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"42"}`))
	}))
	defer srv.Close()

	b := NewOllamaBackend(config.OllamaConfig{BaseURL: srv.URL, SkipAvailableCheck: true}, errors.NewDiscardLogger())
	_, err := b.Generate(context.Background(), Request{Prompt: "a number", MaxTokens: 16, Temperature: float32Ptr(0.1)})
	require.NoError(t, err)

	options, ok := got["options"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 16, options["num_predict"])
	assert.InDelta(t, 0.1, options["temperature"], 1e-6)
}

func TestOllamaBackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := NewOllamaBackend(config.OllamaConfig{BaseURL: srv.URL, AvailableTimeout: time.Second}, errors.NewDiscardLogger())
	_, err := b.Generate(context.Background(), Request{Prompt: "x"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeProviderUnavailable))
}

func TestOpenAIBackend(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Next question"}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL}, errors.NewDiscardLogger())
	require.NoError(t, err)

	resp, err := b.Generate(context.Background(), Request{
		Prompt:  "my answer",
		System:  "interviewer",
		History: []types.Message{{Role: types.RoleAssistant, Content: "q1"}, {Role: types.RoleUser, Content: "a1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Next question", resp.Text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Nil(t, got.ResponseFormat)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, []string{"system", "assistant", "user", "user"},
		[]string{got.Messages[0].Role, got.Messages[1].Role, got.Messages[2].Role, got.Messages[3].Role})
}

func TestOpenAIBackendRequiresKey(t *testing.T) {
	_, err := NewOpenAIBackend(config.OpenAIConfig{}, errors.NewDiscardLogger())
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
}

func TestOpenAIStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend(config.OpenAIConfig{APIKey: "sk", BaseURL: srv.URL}, errors.NewDiscardLogger())
	require.NoError(t, err)
	_, err = b.Generate(context.Background(), Request{Prompt: "x", JSON: true})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.True(t, isClientError(err))
}

func TestGeminiBackendRequiresKey(t *testing.T) {
	_, err := NewGeminiBackend(config.GeminiConfig{}, errors.NewDiscardLogger())
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
}

func TestGeminiContents(t *testing.T) {
	contents := geminiContents(Request{
		Prompt:  "answer",
		History: []types.Message{{Role: types.RoleAssistant, Content: "q"}, {Role: types.RoleUser, Content: "a"}},
	})
	require.Len(t, contents, 3)
	assert.Equal(t, "model", string(contents[0].Role))
	assert.Equal(t, "user", string(contents[1].Role))
	assert.Equal(t, "answer", contents[2].Parts[0].Text)
}
