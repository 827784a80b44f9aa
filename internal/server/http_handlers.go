package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"candidly/internal/errors"
)

func (s *Server) healthCheckTimeout() time.Duration {
	if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

// healthHandler reports backend availability and breaker states. The
// service stays usable with every backend down, so a degraded answer is
// still 200.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.healthCheckTimeout())
	defer cancel()

	backends := s.backends.Health(ctx)
	available := 0
	for _, b := range backends {
		if b.Available {
			available++
		}
	}

	status := "healthy"
	if available == 0 {
		status = "degraded"
	}

	response := map[string]any{
		"status":             status,
		"service":            "candidly",
		"version":            s.Version,
		"backends":           backends,
		"available_backends": available,
		"fallbacks_active":   available == 0,
	}
	if s.certs != nil {
		response["certificates"] = s.certs.Status()
	}
	writeJSON(w, http.StatusOK, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "candidly",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"interview_phases":       s.AppConfig.Interview.TotalPhases,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.watcher != nil {
		response["prompt_watcher"] = map[string]any{
			"running": s.watcher.IsRunning(),
			"files":   s.watcher.WatchedFiles(),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest decodes a JSON request body into v.
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

// statusFor maps the error taxonomy to an HTTP status. Only caller-caused
// errors are exposed; everything else is a generic 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.HasCode(err, errors.ErrCodeUnsupportedFormat):
		return http.StatusBadRequest, "Unsupported file format"
	case errors.HasCode(err, errors.ErrCodeExtractionFailed):
		return http.StatusUnprocessableEntity, "Could not extract text from file"
	case errors.HasCode(err, errors.ErrCodeInvalidSession):
		return http.StatusNotFound, "Invalid or expired session"
	case errors.HasCode(err, errors.ErrCodeNotFound):
		return http.StatusNotFound, "Not found"
	case errors.HasCode(err, errors.ErrCodeInvalidRequest):
		return http.StatusBadRequest, "Invalid request"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeServiceError logs err and answers with the mapped status. Internal
// error details stay in the log.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := statusFor(err)
	message := ""
	if status == http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path)
	} else {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			message = appErr.Message
		}
		s.Logger.Debug("Request rejected", "endpoint", r.URL.Path, "status", status, "error", err.Error())
	}
	writeErrorResponse(w, title, message, status)
}
