package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePrompt(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create prompt file: %v", err)
	}
	return path
}

func TestPromptResolutionOrder(t *testing.T) {
	tempDir := t.TempDir()
	rubricFile := writePrompt(t, tempDir, "rubric.md", "  Rubric from file  \n")

	config := &Config{
		AI: AIConfig{
			CustomPrompts: PromptConfig{
				EvaluationRubric:     "inline rubric",
				EvaluationRubricFile: rubricFile,
				InterviewSystem:      "inline interviewer",
			},
		},
	}

	if err := config.LoadPromptFiles(); err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	if got := config.Prompt(PromptEvaluationRubric); got != "Rubric from file" {
		t.Errorf("file prompt should win over inline, got %q", got)
	}
	if got := config.Prompt(PromptInterviewSystem); got != "inline interviewer" {
		t.Errorf("expected inline prompt, got %q", got)
	}
	if got := config.Prompt(PromptParseResume); got != "" {
		t.Errorf("expected empty prompt for unconfigured kind, got %q", got)
	}

	var nilConfig *Config
	if got := nilConfig.Prompt(PromptParseResume); got != "" {
		t.Errorf("nil config should resolve to empty, got %q", got)
	}
}

func TestReloadPrompts(t *testing.T) {
	tempDir := t.TempDir()
	file := writePrompt(t, tempDir, "system.md", "first version")

	config := &Config{AI: AIConfig{CustomPrompts: PromptConfig{InterviewSystemFile: file}}}
	if err := config.LoadPromptFiles(); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	writePrompt(t, tempDir, "system.md", "second version")
	if err := config.ReloadPrompts(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := config.Prompt(PromptInterviewSystem); got != "second version" {
		t.Errorf("expected reloaded prompt, got %q", got)
	}

	// An emptied file fails the reload and keeps the last good prompt.
	writePrompt(t, tempDir, "system.md", "   ")
	if err := config.ReloadPrompts(); err == nil {
		t.Error("expected reload of empty prompt file to fail")
	}
	if got := config.Prompt(PromptInterviewSystem); got != "second version" {
		t.Errorf("expected previous prompt to survive failed reload, got %q", got)
	}
}

func TestValidatePromptFiles(t *testing.T) {
	tempDir := t.TempDir()
	validFile := writePrompt(t, tempDir, "valid.md", "Valid content")

	config := &Config{AI: AIConfig{CustomPrompts: PromptConfig{ParseResumeFile: validFile}}}
	if err := config.validatePromptFiles(); err != nil {
		t.Errorf("Expected validation to pass for valid file, got error: %v", err)
	}

	config.AI.CustomPrompts.ScoreCandidateFile = filepath.Join(tempDir, "nonexistent.md")
	if err := config.validatePromptFiles(); err == nil {
		t.Error("Expected validation to fail for non-existent file")
	}
}

func TestLoadPromptFromFile(t *testing.T) {
	tempDir := t.TempDir()

	content, err := loadPromptFromFile(writePrompt(t, tempDir, "ok.md", "Test prompt content"), PromptParseResume)
	if err != nil {
		t.Fatalf("Failed to load prompt from file: %v", err)
	}
	if content != "Test prompt content" {
		t.Errorf("Expected content 'Test prompt content', got '%s'", content)
	}

	if _, err := loadPromptFromFile(writePrompt(t, tempDir, "empty.md", ""), PromptParseResume); err == nil {
		t.Error("Expected error for empty file")
	}
	if _, err := loadPromptFromFile(filepath.Join(tempDir, "nonexistent.md"), PromptParseResume); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestPromptFiles(t *testing.T) {
	tempDir := t.TempDir()
	file := writePrompt(t, tempDir, "score.md", "score prompt")

	config := &Config{AI: AIConfig{CustomPrompts: PromptConfig{ScoreCandidateFile: file}}}
	files := config.PromptFiles()

	if len(files) != 1 || files[PromptScoreCandidate] != file {
		t.Errorf("unexpected prompt files: %v", files)
	}
}
