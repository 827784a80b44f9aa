package ai

import (
	"strings"

	"candidly/internal/config"
)

// PromptSource supplies operator-configured prompt overrides by kind.
// *config.Config implements it.
type PromptSource interface {
	Prompt(kind string) string
}

// ResolvePrompt picks the configured prompt for kind, or fallback when none is set.
func ResolvePrompt(src PromptSource, kind, fallback string) string {
	if src != nil {
		if p := src.Prompt(kind); p != "" {
			return p
		}
	}
	return fallback
}

// FillPrompt substitutes {{name}} placeholders.
func FillPrompt(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// DefaultParseResumePrompt asks for the profile fields as a JSON object.
const DefaultParseResumePrompt = `Extract candidate information from this resume text and return ONLY a JSON object.

Resume Text:
{{resume}}

Return JSON with these fields:
- name: full name
- email: email address
- phone: phone number or null
- location: city/state or null
- experience: work history as a short paragraph or null
- skills: comma-separated skills or null
- education: education details as a short paragraph or null

Return ONLY the JSON object.`

// DefaultScoreCandidatePrompt asks for a requirements match score.
const DefaultScoreCandidatePrompt = `Evaluate how well this candidate matches the job requirements.

Job:
{{requirements}}

Candidate:
- Skills: {{skills}}
- Experience: {{experience}}
- Education: {{education}}

Return ONLY JSON: {"score": 0-100, "strengths": ["item"], "gaps": ["item"], "reasoning": "brief explanation"}`

var _ PromptSource = (*config.Config)(nil)
