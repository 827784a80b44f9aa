package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Prompt kinds that can be overridden from configuration
const (
	PromptParseResume      = "parseResume"
	PromptScoreCandidate   = "scoreCandidate"
	PromptInterviewSystem  = "interviewSystem"
	PromptEvaluationSystem = "evaluationSystem"
	PromptEvaluationRubric = "evaluationRubric"
)

// promptStore holds prompt content read from files. It is swapped in
// place when the prompt watcher reloads the files.
type promptStore struct {
	mu     sync.RWMutex
	loaded map[string]string
}

func newPromptStore() *promptStore {
	return &promptStore{loaded: make(map[string]string)}
}

type promptEntry struct {
	kind   string
	inline string
	file   string
}

func (c *Config) promptEntries() []promptEntry {
	p := c.AI.CustomPrompts
	return []promptEntry{
		{PromptParseResume, p.ParseResume, p.ParseResumeFile},
		{PromptScoreCandidate, p.ScoreCandidate, p.ScoreCandidateFile},
		{PromptInterviewSystem, p.InterviewSystem, p.InterviewSystemFile},
		{PromptEvaluationSystem, p.EvaluationSystem, p.EvaluationSystemFile},
		{PromptEvaluationRubric, p.EvaluationRubric, p.EvaluationRubricFile},
	}
}

// Prompt returns the configured prompt for kind: file content first, then
// the inline value. An empty result means the built-in default applies.
func (c *Config) Prompt(kind string) string {
	if c == nil {
		return ""
	}
	if c.prompts != nil {
		c.prompts.mu.RLock()
		content := c.prompts.loaded[kind]
		c.prompts.mu.RUnlock()
		if content != "" {
			return content
		}
	}
	for _, e := range c.promptEntries() {
		if e.kind == kind {
			return strings.TrimSpace(e.inline)
		}
	}
	return ""
}

// PromptFiles lists the prompt files in use, keyed by prompt kind.
func (c *Config) PromptFiles() map[string]string {
	files := make(map[string]string)
	for _, e := range c.promptEntries() {
		if e.file != "" {
			if abs, err := filepath.Abs(e.file); err == nil {
				files[e.kind] = abs
			}
		}
	}
	return files
}

// LoadPromptFiles reads every configured prompt file into the store.
// Either all files load or the store is left untouched.
func (c *Config) LoadPromptFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")
	if c.prompts == nil {
		c.prompts = newPromptStore()
	}

	loaded := make(map[string]string)
	for _, e := range c.promptEntries() {
		if e.file == "" {
			continue
		}
		content, err := loadPromptFromFile(e.file, e.kind)
		if err != nil {
			return err
		}
		loaded[e.kind] = content
	}

	c.prompts.mu.Lock()
	c.prompts.loaded = loaded
	c.prompts.mu.Unlock()

	logPromptLoadingSummary(loaded)
	return nil
}

// ReloadPrompts re-reads prompt files after a change on disk. A failed
// reload keeps the previously loaded prompts.
func (c *Config) ReloadPrompts() error {
	if err := c.validatePromptFiles(); err != nil {
		return err
	}
	return c.LoadPromptFiles()
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, kind string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", kind, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s prompt file not found: %s", kind, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", kind, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", kind, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s prompt from file: %s (%d characters)",
		kind, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, e := range c.promptEntries() {
		if e.file == "" {
			continue
		}
		absPath, err := filepath.Abs(e.file)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s prompt: %s", e.kind, e.file))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s prompt file not found: %s", e.kind, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

func logPromptLoadingSummary(loaded map[string]string) {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")
	if len(loaded) == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		for kind := range loaded {
			log.Printf("[CONFIG] %s prompt: loaded from file", kind)
		}
		log.Printf("[CONFIG] Total custom prompts loaded: %d", len(loaded))
	}
	log.Println("[CONFIG] ==========================================")
}
