package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{
		DefaultFormat:    "json",
		SupportedFormats: []string{"json", "yaml", "text", "markdown"},
		MaxFileSize:      1 << 20,
	}}
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return Execute(context.Background(), testConfig(), errors.NewDiscardLogger())
}

func TestCandidateAnswers(t *testing.T) {
	transcript := "Interviewer: Tell me about yourself.\n\nCandidate: I run the payments team.\n\n" +
		"Interviewer: Why Go?\n\nCandidate:\n\nCandidate: Simple deploys and fast builds."
	assert.Equal(t, []string{"I run the payments team.", "Simple deploys and fast builds."}, candidateAnswers(transcript))
	assert.Empty(t, candidateAnswers(""))
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "answer.txt")
	require.NoError(t, os.WriteFile(in, []byte("As an AI language model, I don't have personal experiences. However, it is important to note that teamwork matters."), 0o600))
	out := filepath.Join(dir, "report.json")

	require.NoError(t, run(t, "detect", in, "-o", out, "--format", "json"))

	var report types.AuthenticityReport
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.Detected)
	assert.NotEmpty(t, report.MatchedPhrases)
}

func TestScoreCommandUsesFallbacks(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Margaret Hamilton</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>margaret@example.com</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Skills: Python, Java, SQL</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	resume := filepath.Join(dir, "resume.docx")
	require.NoError(t, os.WriteFile(resume, buf.Bytes(), 0o600))
	reqs := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(reqs, []byte("title: Flight Software Engineer\nrequirements: Python, embedded\n"), 0o600))
	out := filepath.Join(dir, "report.json")

	require.NoError(t, run(t, "score", resume, "--requirements", reqs, "-o", out))

	var report types.ScreeningReport
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "margaret@example.com", report.Profile.Email)
	assert.Equal(t, "regex", report.ParsedBy)
	require.NotNil(t, report.Score)
	assert.GreaterOrEqual(t, report.Score.Score, 0)
	assert.LessOrEqual(t, report.Score.Score, 100)
}

func TestUnsupportedFormatRejected(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "answer.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello"), 0o600))

	err := run(t, "detect", in, "--format", "csv")
	assert.ErrorContains(t, err, "unsupported output format 'csv'")
}
