package ai

import (
	"context"
	"math"
	"strings"

	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/resume"
	"candidly/internal/scoring"
	"candidly/internal/types"
)

// Capability names, used in logs and metrics
const (
	CapabilityParse = "parse_resume"
	CapabilityScore = "score_candidate"
	CapabilityChat  = "chat"

	FallbackRegex  = "regex"
	FallbackSimple = scoring.Provider

	defaultModelScore = 75
)

// ScoreInput is what the scoring chain works on.
type ScoreInput struct {
	Profile      types.CandidateProfile
	Requirements types.JobRequirements
}

// Capabilities runs the résumé parsing and scoring chains.
type Capabilities struct {
	parse *Chain[string, types.CandidateProfile]
	score *Chain[ScoreInput, types.ScoreResult]
}

// NewCapabilities builds both chains from the configured backend orders.
func NewCapabilities(reg *Registry, cfg *config.Config, prompts PromptSource, logger *errors.Logger, rec Recorder) *Capabilities {
	parse := &Chain[string, types.CandidateProfile]{
		Name:         CapabilityParse,
		FallbackName: FallbackRegex,
		Fallback:     resume.Parse,
		Logger:       logger,
		Recorder:     rec,
	}
	for _, name := range cfg.AI.ParseOrder {
		parse.Providers = append(parse.Providers, parseProvider(reg, name, prompts))
	}

	score := &Chain[ScoreInput, types.ScoreResult]{
		Name:         CapabilityScore,
		FallbackName: FallbackSimple,
		Fallback:     func(in ScoreInput) types.ScoreResult { return scoring.Score(in.Profile) },
		Logger:       logger,
		Recorder:     rec,
	}
	for _, name := range cfg.AI.ScoreOrder {
		score.Providers = append(score.Providers, scoreProvider(reg, name, prompts))
	}

	return &Capabilities{parse: parse, score: score}
}

// ParseResume turns résumé text into a normalized profile.
func (c *Capabilities) ParseResume(ctx context.Context, text string) Result[types.CandidateProfile] {
	return c.parse.Run(ctx, text)
}

// ScoreCandidate scores a profile against the job requirements.
func (c *Capabilities) ScoreCandidate(ctx context.Context, profile types.CandidateProfile, reqs types.JobRequirements) Result[types.ScoreResult] {
	return c.score.Run(ctx, ScoreInput{Profile: profile, Requirements: reqs})
}

func float32Ptr(f float32) *float32 { return &f }

func parseProvider(reg *Registry, name string, prompts PromptSource) Provider[string, types.CandidateProfile] {
	return Provider[string, types.CandidateProfile]{
		Name: name,
		Call: func(ctx context.Context, text string) (types.CandidateProfile, *TokenUsage, error) {
			b, err := reg.Get(name)
			if err != nil {
				return types.CandidateProfile{}, nil, err
			}

			prompt := FillPrompt(ResolvePrompt(prompts, config.PromptParseResume, DefaultParseResumePrompt),
				map[string]string{"resume": text})
			resp, err := b.Generate(ctx, Request{
				Prompt:      prompt,
				JSON:        true,
				Temperature: float32Ptr(0.1),
				MaxTokens:   2048,
			})
			if err != nil {
				return types.CandidateProfile{}, nil, err
			}

			profile, err := decodeProfile(resp.Text)
			if err != nil {
				return types.CandidateProfile{}, resp.Usage, err
			}
			return resume.Normalize(profile, text), resp.Usage, nil
		},
	}
}

func scoreProvider(reg *Registry, name string, prompts PromptSource) Provider[ScoreInput, types.ScoreResult] {
	return Provider[ScoreInput, types.ScoreResult]{
		Name: name,
		Call: func(ctx context.Context, in ScoreInput) (types.ScoreResult, *TokenUsage, error) {
			b, err := reg.Get(name)
			if err != nil {
				return types.ScoreResult{}, nil, err
			}

			prompt := FillPrompt(ResolvePrompt(prompts, config.PromptScoreCandidate, DefaultScoreCandidatePrompt),
				map[string]string{
					"requirements": in.Requirements.String(),
					"skills":       orNA(in.Profile.Skills),
					"experience":   orNA(in.Profile.Experience),
					"education":    orNA(in.Profile.Education),
				})
			resp, err := b.Generate(ctx, Request{
				Prompt:      prompt,
				JSON:        true,
				Temperature: float32Ptr(0.3),
				MaxTokens:   1024,
			})
			if err != nil {
				return types.ScoreResult{}, nil, err
			}

			result, err := decodeScore(resp.Text)
			if err != nil {
				return types.ScoreResult{}, resp.Usage, err
			}
			result.Provider = name
			return result, resp.Usage, nil
		},
	}
}

func orNA(s *string) string {
	if v := types.Deref(s); v != "" {
		return v
	}
	return "N/A"
}

// decodeProfile reads a model's profile JSON. Normalization happens afterwards.
func decodeProfile(raw string) (types.CandidateProfile, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return types.CandidateProfile{}, err
	}
	return types.CandidateProfile{
		Name:       coerceString(obj["name"]),
		Email:      coerceString(obj["email"]),
		Phone:      types.Optional(coerceString(obj["phone"])),
		Location:   types.Optional(coerceString(obj["location"])),
		Experience: types.Optional(coerceString(obj["experience"])),
		Skills:     types.Optional(coerceString(obj["skills"])),
		Education:  types.Optional(coerceString(obj["education"])),
	}, nil
}

// decodeScore reads a model's score JSON. A missing or unreadable score
// defaults to 75; the result is clamped.
func decodeScore(raw string) (types.ScoreResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return types.ScoreResult{}, err
	}
	score := defaultModelScore
	if f := coerceFloat(obj["score"]); !math.IsNaN(f) {
		score = int(math.Round(f))
	}

	return types.ScoreResult{
		Score:     types.ClampScore(score),
		Strengths: coerceStringList(obj["strengths"]),
		Gaps:      coerceStringList(obj["gaps"]),
		Reasoning: strings.TrimSpace(coerceString(obj["reasoning"])),
	}, nil
}
