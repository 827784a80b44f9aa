// Package evaluation grades a finished interview. Evaluate always produces
// an outcome: provider failures degrade to a fixed safety-net result.
package evaluation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"candidly/internal/ai"
	"candidly/internal/authenticity"
	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/types"
)

// Input is a finished interview ready for grading.
type Input struct {
	Transcript   string
	Requirements string
	Signals      types.IntegritySignals
	Responses    []string // candidate answers, checked for AI authorship
}

// Observer is told about every finished evaluation.
type Observer interface {
	RecordEvaluation(ctx context.Context, outcome types.EvaluationOutcome)
}

// Pipeline grades transcripts with a text generator.
type Pipeline struct {
	generator ai.TextGenerator
	cfg       config.EvaluationConfig
	prompts   ai.PromptSource
	logger    *errors.Logger
	observer  Observer
}

// NewPipeline creates an evaluation pipeline. prompts and observer may be nil.
func NewPipeline(gen ai.TextGenerator, cfg config.EvaluationConfig, prompts ai.PromptSource, logger *errors.Logger, observer Observer) *Pipeline {
	if cfg.DefaultScore == 0 && cfg.MinSummaryLength == 0 && cfg.MaxSummaryLength == 0 {
		cfg = config.EvaluationConfig{DefaultScore: 50, MinSummaryLength: 40, MaxSummaryLength: 500, SummaryChars: 3000}
	}
	return &Pipeline{generator: gen, cfg: cfg, prompts: prompts, logger: logger, observer: observer}
}

// SafetyNet is the outcome used when grading could not run at all.
func SafetyNet(defaultScore int) types.EvaluationOutcome {
	return types.EvaluationOutcome{
		Score:        types.ClampScore(defaultScore),
		Summary:      GenericSummary,
		Flags:        []types.Flag{},
		Strengths:    []string{},
		Improvements: []string{},
		SafetyNet:    true,
	}
}

// Evaluate grades one interview. It never fails and never panics.
func (p *Pipeline) Evaluate(ctx context.Context, in Input) (outcome types.EvaluationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.LogError(fmt.Errorf("panic: %v", r), "Evaluation panicked, using safety net")
			outcome = SafetyNet(p.cfg.DefaultScore)
		}
		if p.observer != nil {
			p.observer.RecordEvaluation(ctx, outcome)
		}
	}()

	reply, err := p.generator.Generate(ctx, ai.Request{
		Prompt: p.rubricPrompt(in),
		System: ai.ResolvePrompt(p.prompts, config.PromptEvaluationSystem, DefaultSystemPrompt),
	})
	if err != nil {
		p.logger.LogError(err, "Evaluation model call failed, using safety net")
		return SafetyNet(p.cfg.DefaultScore)
	}

	parsed := ParseResponse(reply)
	score := parsed.Score
	if !parsed.HasScore {
		score = p.recoverScore(ctx, in)
	}

	summary := parsed.Summary
	if utf8.RuneCountInString(summary) < p.cfg.MinSummaryLength {
		summary = p.summarize(ctx, in.Transcript)
	}
	summary = strings.TrimSpace(truncateRunes(summary, p.cfg.MaxSummaryLength))

	report := authenticity.Analyze(in.Responses...)
	return types.EvaluationOutcome{
		Score:        score,
		Summary:      summary,
		Flags:        BuildFlags(in.Signals, report.Detected),
		Strengths:    parsed.Strengths,
		Improvements: parsed.Improvements,
		Authenticity: &report,
	}
}

func (p *Pipeline) rubricPrompt(in Input) string {
	requirements := strings.TrimSpace(in.Requirements)
	if requirements == "" {
		requirements = "Not specified"
	}
	transcript := strings.TrimSpace(in.Transcript)
	if transcript == "" {
		transcript = "(no conversation recorded)"
	}
	return ai.FillPrompt(ai.ResolvePrompt(p.prompts, config.PromptEvaluationRubric, DefaultRubricPrompt), map[string]string{
		"requirements":     requirements,
		"transcript":       transcript,
		"multiple_faces":   yesNo(in.Signals.MultipleFaces),
		"background_noise": yesNo(in.Signals.BackgroundNoise),
		"suspected_ai":     yesNo(in.Signals.SuspectedAI),
	})
}

// recoverScore asks once more for a bare integer before settling on the default.
func (p *Pipeline) recoverScore(ctx context.Context, in Input) int {
	reply, err := p.generator.Generate(ctx, ai.Request{
		Prompt:    fmt.Sprintf(retryPrompt, len(in.Transcript), signalSummary(in.Signals)),
		MaxTokens: 16,
	})
	if err == nil {
		if score, ok := FirstInteger(reply); ok {
			return types.ClampScore(score)
		}
	}
	p.logger.LogError(errors.ParseRecoveryExhausted(err), "Using default evaluation score",
		"default_score", p.cfg.DefaultScore)
	return types.ClampScore(p.cfg.DefaultScore)
}

func (p *Pipeline) summarize(ctx context.Context, transcript string) string {
	excerpt := truncateRunes(strings.TrimSpace(transcript), p.cfg.SummaryChars)
	if excerpt == "" {
		return GenericSummary
	}
	reply, err := p.generator.Generate(ctx, ai.Request{Prompt: fmt.Sprintf(summaryPrompt, excerpt)})
	if err != nil {
		p.logger.Warn("Summary generation failed", "error", err.Error())
		return GenericSummary
	}
	summary := strings.TrimSpace(reply)
	if summary == "" {
		return GenericSummary
	}
	return strings.TrimSpace(truncateRunes(summary, p.cfg.MaxSummaryLength))
}

// Flag descriptions
const (
	FaceFlagDescription  = "Multiple faces detected during interview"
	SoundFlagDescription = "Suspicious background noise or voices detected"
	AIFlagDescription    = "Responses show signs of AI generation"
)

// BuildFlags maps integrity signals to flags in face, sound, ai order.
// aiDetected comes from the authorship heuristic and raises the ai flag on
// its own.
func BuildFlags(s types.IntegritySignals, aiDetected bool) []types.Flag {
	flags := []types.Flag{}
	if s.MultipleFaces {
		flags = append(flags, types.Flag{Kind: "face", Severity: "high", Description: FaceFlagDescription})
	}
	if s.BackgroundNoise {
		flags = append(flags, types.Flag{Kind: "sound", Severity: "medium", Description: SoundFlagDescription})
	}
	if s.SuspectedAI || aiDetected {
		flags = append(flags, types.Flag{Kind: "ai", Severity: "high", Description: AIFlagDescription})
	}
	return flags
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func signalSummary(s types.IntegritySignals) string {
	var raised []string
	if s.MultipleFaces {
		raised = append(raised, "multiple faces")
	}
	if s.BackgroundNoise {
		raised = append(raised, "background noise")
	}
	if s.SuspectedAI {
		raised = append(raised, "suspected AI assistance")
	}
	if len(raised) == 0 {
		return "none raised"
	}
	return strings.Join(raised, ", ")
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
