package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidly/internal/ai"
	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/evaluation"
	"candidly/internal/interview"
	"candidly/internal/screening"
	"candidly/internal/storage"
)

type cannedGenerator string

func (c cannedGenerator) Generate(context.Context, ai.Request) (string, error) {
	return string(c), nil
}

func docxFile(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestServer(t *testing.T, mutate func(*config.Config, *ServerConfig)) *Server {
	t.Helper()
	logger := errors.NewDiscardLogger()
	cfg := &config.Config{}
	scfg := ServerConfig{Version: "test", MaxRequestSize: 5 << 20}
	if mutate != nil {
		mutate(cfg, &scfg)
	}

	reg := ai.NewRegistry()
	caps := ai.NewCapabilities(reg, cfg, nil, logger, nil)

	mem := storage.NewMemoryRepository()
	transcripts, err := storage.NewFileTranscriptStore(t.TempDir())
	require.NoError(t, err)
	stores := &storage.Stores{
		Sessions:     storage.NewMemorySessionStore(0),
		Candidates:   mem,
		Recruitments: mem.Recruitments(),
		Transcripts:  transcripts,
	}

	gen := cannedGenerator("SCORE: 64\nSUMMARY: Clear answers about queueing and retries.")
	pipeline := evaluation.NewPipeline(gen, config.EvaluationConfig{}, nil, logger, nil)
	machine := interview.NewMachine(gen, pipeline, stores.Sessions, logger, interview.Options{})
	svc := screening.NewService(caps, machine, stores, logger, nil)

	s := NewServer(cfg, scfg, svc, reg, nil, logger)
	t.Cleanup(s.Close)
	return s
}

func uploadRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("resume", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/interview/upload-resume", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestInterviewOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := serve(h, uploadRequest(t, "resume.docx",
		docxFile(t, "Ada Lovelace", "ada@example.com", "Skills: Go, Kafka"),
		map[string]string{"requirements": "Go and messaging"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	up := decode(t, rec)
	token, _ := up["session_token"].(string)
	require.NotEmpty(t, token)
	assert.NotEmpty(t, up["candidate_id"])
	assert.Equal(t, "Resume processed successfully with regex", up["message"])
	assert.NotContains(t, up, "ats")
	assert.NotContains(t, up, "score")

	rec = serve(h, jsonRequest(http.MethodPost, "/api/interview/start", StartRequest{SessionToken: token}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Interview session started", decode(t, rec)["message"])

	rec = serve(h, jsonRequest(http.MethodPost, "/api/interview/chat", ChatRequest{SessionToken: token, Message: "I build event pipelines"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	chat := decode(t, rec)
	assert.EqualValues(t, 1, chat["phase"])

	rec = serve(h, jsonRequest(http.MethodPost, "/api/interview/update-flags", UpdateFlagsRequest{SessionToken: token, NoiseFlag: 1}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	flags, _ := decode(t, rec)["flags"].(map[string]any)
	assert.Equal(t, true, flags["background_noise"])

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/interview/status/"+token, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "in_progress", decode(t, rec)["status"])

	rec = serve(h, jsonRequest(http.MethodPost, "/api/interview/submit", SubmitRequest{SessionToken: token}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sub := decode(t, rec)
	assert.EqualValues(t, 64, sub["interview_score"])
	assert.Equal(t, "Interview submitted successfully", sub["message"])

	rec = serve(h, jsonRequest(http.MethodPost, "/api/interview/submit", SubmitRequest{SessionToken: token}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id, _ := up["candidate_id"].(string)
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/candidates/"+id+"/transcript", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode(t, rec)["transcript"], "I build event pipelines")
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     int
	}{
		{"unsupported extension", "resume.txt", []byte("plain text"), http.StatusBadRequest},
		{"corrupt pdf", "resume.pdf", []byte("%PDF-1.4 not really"), http.StatusUnprocessableEntity},
		{"corrupt docx", "resume.docx", []byte("not a zip"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, uploadRequest(t, tt.filename, tt.data, nil))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}

	t.Run("missing file", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/interview/upload-resume", map[string]string{})
		rec := serve(h, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionRequestValidation(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"unknown token", jsonRequest(http.MethodPost, "/api/interview/start", StartRequest{SessionToken: "nope"}), http.StatusNotFound},
		{"missing token", jsonRequest(http.MethodPost, "/api/interview/chat", ChatRequest{Message: "hi"}), http.StatusBadRequest},
		{"unknown status", httptest.NewRequest(http.MethodGet, "/api/interview/status/nope", nil), http.StatusNotFound},
		{"wrong content type", func() *http.Request {
			r := jsonRequest(http.MethodPost, "/api/interview/start", StartRequest{SessionToken: "x"})
			r.Header.Set("Content-Type", "text/plain")
			return r
		}(), http.StatusBadRequest},
		{"invalid code", jsonRequest(http.MethodPost, "/api/interview/validate-code", ValidateCodeRequest{InterviewCode: "bogus"}), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRecruiterAPI(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, sc *ServerConfig) {
		sc.APIKeys = []string{"recruiter-key-123"}
	})
	h := s.Handler()

	rec := serve(h, jsonRequest(http.MethodPost, "/api/recruitment/", CreateRecruitmentRequest{Title: "SRE"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := jsonRequest(http.MethodPost, "/api/recruitment/", CreateRecruitmentRequest{Title: "SRE"})
	req.Header.Set("X-API-Key", "wrong-key-000")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	req = jsonRequest(http.MethodPost, "/api/recruitment/", CreateRecruitmentRequest{Title: "SRE", Requirements: "Linux, on-call"})
	req.Header.Set("Authorization", "Bearer recruiter-key-123")
	rec = serve(h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	code, _ := created["interview_code"].(string)
	assert.True(t, screening.ValidCodeFormat(code), code)

	// Candidates validate codes without a key.
	rec = serve(h, jsonRequest(http.MethodPost, "/api/interview/validate-code", ValidateCodeRequest{InterviewCode: code}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	valid := decode(t, rec)
	assert.Equal(t, true, valid["valid"])
	assert.Equal(t, "SRE", valid["recruitment_title"])

	rec = serve(h, uploadRequest(t, "cv.docx", docxFile(t, "Ken Thompson", "ken@example.com"),
		map[string]string{"interview_code": code}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	candidateID, _ := decode(t, rec)["candidate_id"].(string)

	req = httptest.NewRequest(http.MethodGet, "/api/candidates/?recruitment_id="+created["id"].(string), nil)
	req.Header.Set("X-API-Key", "recruiter-key-123")
	rec = serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, candidateID, list[0]["id"])

	req = jsonRequest(http.MethodPatch, "/api/candidates/"+candidateID+"/status", UpdateStatusRequest{Status: "Shortlisted"})
	req.Header.Set("X-API-Key", "recruiter-key-123")
	rec = serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Shortlisted", decode(t, rec)["status"])

	req = httptest.NewRequest(http.MethodGet, "/api/recruitment/missing", nil)
	req.Header.Set("X-API-Key", "recruiter-key-123")
	assert.Equal(t, http.StatusNotFound, serve(h, req).Code)
}

func TestListCandidatesEmpty(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s.Handler(), httptest.NewRequest(http.MethodGet, "/api/candidates/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, sc *ServerConfig) {
		sc.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 2, ByIP: true}
	})
	h := s.Handler()

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, serve(h, httptest.NewRequest(http.MethodGet, "/api/interview/status/x", nil)).Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/interview/status/x", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusNotFound, serve(h, req).Code)

	// Health stays reachable.
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestRateLimiterEvictIdle(t *testing.T) {
	rl := NewRateLimiter(60, 1, errors.NewDiscardLogger())
	defer rl.Close()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("ip:a")
	now = now.Add(5 * time.Minute)
	rl.Allow("ip:b")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, rl.evictIdle(10*time.Minute))
	assert.Equal(t, 1, rl.GetStats()["active_limiters"])
}

func TestRequestSizeLimit(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, sc *ServerConfig) {
		sc.MaxRequestSize = 64
	})
	req := jsonRequest(http.MethodPost, "/api/interview/chat",
		ChatRequest{SessionToken: "t", Message: strings.Repeat("x", 200)})
	rec := serve(s.Handler(), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "too large")
}

func TestHealthDegradedWithoutBackends(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, true, body["fallbacks_active"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NewValidationError(errors.ErrCodeUnsupportedFormat, "x", nil), http.StatusBadRequest},
		{errors.NewValidationError(errors.ErrCodeExtractionFailed, "x", nil), http.StatusUnprocessableEntity},
		{errors.NewValidationError(errors.ErrCodeInvalidSession, "x", nil), http.StatusNotFound},
		{errors.NewValidationError(errors.ErrCodeInvalidRequest, "x", nil), http.StatusBadRequest},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, _ := statusFor(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}
