package ai

import (
	"context"
	"fmt"
	"sync"

	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/types"
)

// Backend is a single language-model service.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
	// Available is a cheap reachability check used by health endpoints.
	Available(ctx context.Context) error
}

// Request is one generation call. History is prior conversation in order;
// Prompt is appended after it as the newest user turn.
type Request struct {
	Prompt      string
	System      string
	History     []types.Message
	JSON        bool
	Temperature *float32
	MaxTokens   int32
}

// Response is the text a backend produced.
type Response struct {
	Text  string
	Usage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// BackendFactory builds a backend on first use.
type BackendFactory func() (Backend, error)

type lazyBackend struct {
	once    sync.Once
	factory BackendFactory
	backend Backend
	err     error
}

func (l *lazyBackend) get() (Backend, error) {
	l.once.Do(func() {
		l.backend, l.err = l.factory()
	})
	return l.backend, l.err
}

// Registry holds one lazily constructed backend per name. Handles are built
// at most once and shared by every caller; a construction failure is kept and
// reported on each lookup.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*lazyBackend
	order    []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]*lazyBackend)}
}

// Register adds a backend factory under name, replacing any earlier one.
func (r *Registry) Register(name string, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.backends[name]; !exists {
		r.order = append(r.order, name)
	}
	r.backends[name] = &lazyBackend{factory: factory}
}

// Get returns the backend for name, constructing it on first use.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	lb, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.ProviderUnavailable(name, fmt.Errorf("backend %q is not registered", name))
	}
	b, err := lb.get()
	if err != nil {
		return nil, errors.ProviderUnavailable(name, err)
	}
	return b, nil
}

// Names returns registered backend names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// NewRegistryFromConfig registers every known backend. Nothing is dialled
// until a chain first asks for a backend.
func NewRegistryFromConfig(cfg *config.Config, logger *errors.Logger) *Registry {
	r := NewRegistry()
	cb := cfg.AI.CircuitBreaker

	r.Register(config.BackendGemini, func() (Backend, error) {
		b, err := NewGeminiBackend(cfg.AI.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return WithBreaker(b, cb, logger), nil
	})
	r.Register(config.BackendOllama, func() (Backend, error) {
		return WithBreaker(NewOllamaBackend(cfg.AI.Ollama, logger), cb, logger), nil
	})
	r.Register(config.BackendOpenAI, func() (Backend, error) {
		b, err := NewOpenAIBackend(cfg.AI.OpenAI, logger)
		if err != nil {
			return nil, err
		}
		return WithBreaker(b, cb, logger), nil
	})
	return r
}

// BackendStatus is what health checks report for one backend.
type BackendStatus struct {
	Name      string         `json:"name"`
	Available bool           `json:"available"`
	Error     string         `json:"error,omitempty"`
	Breaker   map[string]any `json:"circuit_breaker,omitempty"`
}

// Health checks every registered backend.
func (r *Registry) Health(ctx context.Context) []BackendStatus {
	var out []BackendStatus
	for _, name := range r.Names() {
		status := BackendStatus{Name: name}
		b, err := r.Get(name)
		if err == nil {
			err = b.Available(ctx)
			if br, ok := b.(*BreakerBackend); ok {
				status.Breaker = br.Stats()
			}
		}
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Available = true
		}
		out = append(out, status)
	}
	return out
}
