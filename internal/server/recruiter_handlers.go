package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"candidly/internal/storage"
	"candidly/internal/types"
)

func (s *Server) createRecruitmentHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRecruitmentRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.service.CreateRecruitment(r.Context(), types.JobRequirements{
		Title:        req.Title,
		Department:   req.Department,
		Location:     req.Location,
		Requirements: req.Requirements,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getRecruitmentHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetRecruitment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) recruitmentStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.RecruitmentStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) regenerateCodeHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.RegenerateCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":        "Interview code regenerated",
		"interview_code": rec.InterviewCode,
	})
}

// listCandidatesHandler supports search, status, recruitment_id and sort_by
// query parameters.
func (s *Server) listCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	candidates, err := s.service.ListCandidates(r.Context(), storage.CandidateFilter{
		Search:        q.Get("search"),
		Status:        q.Get("status"),
		RecruitmentID: q.Get("recruitment_id"),
		SortBy:        q.Get("sort_by"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []types.CandidateRecord{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) getCandidateHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetCandidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateCandidateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.service.UpdateCandidateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, err := s.service.Transcript(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"candidate_id": id,
		"transcript":   text,
	})
}
