package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"candidly/internal/errors"
	"candidly/internal/extract"
	"candidly/internal/screening"
	"candidly/internal/types"
	"candidly/internal/utils"
)

const multipartMemory = 8 << 20

func (s *Server) validateCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req ValidateCodeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.service.ValidateCode(r.Context(), req.InterviewCode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateCodeResponse{
		Valid:            true,
		RecruitmentID:    rec.ID,
		RecruitmentTitle: rec.Job.Title,
	})
}

// uploadResumeHandler accepts a multipart "resume" file plus optional
// requirements, recruitment_id and interview_code fields.
func (s *Server) uploadResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.obs.Tracer("candidly.api").Start(r.Context(), "api.upload_resume")
	defer span.End()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid upload", "multipart form with a 'resume' file is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Missing resume", "'resume' file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Reject unsupported types before reading the body.
	if _, err := extract.CheckFilename(header.Filename); err != nil {
		span.RecordError(err)
		s.writeServiceError(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid upload", "could not read uploaded file", http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("upload.extension", utils.GetFileExtension(header.Filename)),
		attribute.Int("upload.bytes", len(data)),
	)

	interviewCode := r.FormValue("interview_code")
	if interviewCode == "" {
		interviewCode = r.URL.Query().Get("interview_code")
	}

	result, err := s.service.Upload(ctx, screening.UploadInput{
		Filename:      header.Filename,
		Data:          data,
		Requirements:  r.FormValue("requirements"),
		RecruitmentID: r.FormValue("recruitment_id"),
		InterviewCode: interviewCode,
	})
	if err != nil {
		span.RecordError(err)
		s.writeServiceError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Bool("success", true))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !s.decodeSessionRequest(w, r, &req, &req.SessionToken) {
		return
	}

	result, err := s.service.Start(r.Context(), req.SessionToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.obs.Tracer("candidly.api").Start(r.Context(), "api.chat")
	defer span.End()

	var req ChatRequest
	if !s.decodeSessionRequest(w, r, &req, &req.SessionToken) {
		return
	}
	span.SetAttributes(
		attribute.Int("request.message_length", len(req.Message)),
		attribute.Int("request.history_length", len(req.ConversationHistory)),
	)

	result, err := s.service.Chat(ctx, req.SessionToken, req.Message, req.ConversationHistory)
	if err != nil {
		span.RecordError(err)
		s.writeServiceError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Int("interview.phase", result.Phase))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) updateFlagsHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateFlagsRequest
	if !s.decodeSessionRequest(w, r, &req, &req.SessionToken) {
		return
	}

	signals, err := s.service.UpdateFlags(r.Context(), req.SessionToken, types.IntegritySignals{
		MultipleFaces:   req.MultipleFacesFlag != 0,
		BackgroundNoise: req.NoiseFlag != 0,
		SuspectedAI:     req.AIFlag != 0,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Flags updated",
		"flags":   signals,
	})
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.obs.Tracer("candidly.api").Start(r.Context(), "api.submit")
	defer span.End()

	var req SubmitRequest
	if !s.decodeSessionRequest(w, r, &req, &req.SessionToken) {
		return
	}

	result, err := s.service.Submit(ctx, req.SessionToken, req.Responses)
	if err != nil {
		span.RecordError(err)
		s.writeServiceError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Int("evaluation.score", result.InterviewScore))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Status(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeSessionRequest parses a JSON body and checks that the session
// token it carries is present. It writes the error response itself.
func (s *Server) decodeSessionRequest(w http.ResponseWriter, r *http.Request, v any, token *string) bool {
	if err := parseJSONRequest(r, v); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	if strings.TrimSpace(*token) == "" {
		s.writeServiceError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"session_token is required", nil))
		return false
	}
	return true
}
