package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// setupRoutes builds the chi router with the middleware stack.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(s.corsOptions()))

	r.Get("/health", s.healthHandler)
	r.Get("/stats", s.statsHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Use(s.requestSizeLimitMiddleware)

		r.Route("/api/interview", func(r chi.Router) {
			r.Post("/validate-code", s.validateCodeHandler)
			r.Post("/upload-resume", s.uploadResumeHandler)
			r.Post("/start", s.startHandler)
			r.Post("/chat", s.chatHandler)
			r.Post("/update-flags", s.updateFlagsHandler)
			r.Post("/submit", s.submitHandler)
			r.Get("/status/{token}", s.statusHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/api/recruitment", func(r chi.Router) {
				r.Post("/", s.createRecruitmentHandler)
				r.Get("/{id}", s.getRecruitmentHandler)
				r.Get("/{id}/stats", s.recruitmentStatsHandler)
				r.Post("/regenerate-code/{id}", s.regenerateCodeHandler)
			})

			r.Route("/api/candidates", func(r chi.Router) {
				r.Get("/", s.listCandidatesHandler)
				r.Get("/{id}", s.getCandidateHandler)
				r.Patch("/{id}/status", s.updateCandidateStatusHandler)
				r.Get("/{id}/transcript", s.transcriptHandler)
			})
		})
	})

	return r
}

func (s *Server) corsOptions() cors.Options {
	origins := s.AppConfig.Server.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	maxAge := s.AppConfig.Server.CORS.MaxAge
	if maxAge <= 0 {
		maxAge = 300
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         maxAge,
	}
}

// authMiddleware guards the recruiter API with the configured API keys.
// No configured keys means the API is open.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.validAPIKey(apiKey) {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) validAPIKey(candidate string) bool {
	for key := range s.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}

// requestSizeLimitMiddleware caps request bodies at MaxRequestSize.
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	if s.MaxRequestSize <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.Logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()))
		}()

		next.ServeHTTP(ww, r)
	})
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
