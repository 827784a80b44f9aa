package server

import (
	"net/http"
	"time"

	"candidly/internal/ai"
	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/observability"
	"candidly/internal/screening"
	"candidly/internal/types"
)

// StartRequest opens the interview for an uploaded résumé.
type StartRequest struct {
	SessionToken string `json:"session_token"`
}

// ChatRequest carries one candidate message. ConversationHistory is the
// client's copy of the conversation and is used as model context only.
type ChatRequest struct {
	SessionToken        string          `json:"session_token"`
	Message             string          `json:"message"`
	ConversationHistory []types.Message `json:"conversation_history"`
}

// UpdateFlagsRequest reports proctoring signals as 0/1 values.
type UpdateFlagsRequest struct {
	SessionToken      string `json:"session_token"`
	MultipleFacesFlag int    `json:"multiple_faces_flag"`
	NoiseFlag         int    `json:"noise_flag"`
	AIFlag            int    `json:"ai_flag"`
}

// SubmitRequest ends the interview.
type SubmitRequest struct {
	SessionToken string   `json:"session_token"`
	Responses    []string `json:"responses"`
}

// ValidateCodeRequest checks an interview access code.
type ValidateCodeRequest struct {
	InterviewCode string `json:"interview_code"`
}

// ValidateCodeResponse names the recruitment behind a valid code.
type ValidateCodeResponse struct {
	Valid            bool   `json:"valid"`
	RecruitmentID    string `json:"recruitment_id"`
	RecruitmentTitle string `json:"recruitment_title"`
}

// CreateRecruitmentRequest opens a position.
type CreateRecruitmentRequest struct {
	Title        string `json:"title"`
	Department   string `json:"department"`
	Location     string `json:"location"`
	Requirements string `json:"requirements"`
}

// UpdateStatusRequest moves a candidate through the pipeline.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server serves the candidate interview API and the recruiter API.
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	// Candidate endpoints authenticate with their session token; recruiter
	// endpoints need one of these keys when any is configured.
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	service  *screening.Service
	backends *ai.Registry
	obs      *observability.Manager
	certs    *certReloader
	watcher  *FileWatcher

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFrom builds the server settings from application config.
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer creates a Server. obs may be nil, in which case telemetry is off.
func NewServer(appCfg *config.Config, cfg ServerConfig, svc *screening.Service, backends *ai.Registry, obs *observability.Manager, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	if obs == nil {
		obs = observability.Disabled(logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		service:        svc,
		backends:       backends,
		obs:            obs,
		Logger:         logger,
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.obs.HTTPMiddleware()(s.setupRoutes())
}
