// Package scoring implements the deterministic ATS scorer used when no model
// backend can score a candidate.
package scoring

import (
	"fmt"
	"strings"

	"candidly/internal/types"
)

// Provider is the name reported for results produced here.
const Provider = "simple"

const (
	contactPoints    = 5
	experiencePoints = 15
	educationPoints  = 10
	maxSkillPoints   = 40
	skillCharsPerPt  = 4
)

// Score rates a profile by completeness and depth of its fields.
// It has no failure mode and performs no I/O.
func Score(p types.CandidateProfile) types.ScoreResult {
	var (
		strengths []string
		gaps      []string
		parts     []string
		total     int
	)

	add := func(label string, pts int) {
		if pts > 0 {
			total += pts
			parts = append(parts, fmt.Sprintf("%s %d", label, pts))
		}
	}

	contact := 0
	if p.Name != "" && p.Name != types.UnknownCandidateName {
		contact += contactPoints
	}
	if p.Email != "" && p.Email != types.PlaceholderEmail {
		contact += contactPoints
	}
	if p.Phone != nil {
		contact += contactPoints
	}
	if p.Location != nil {
		contact += contactPoints
	}
	add("contact", contact)
	if contact == 4*contactPoints {
		strengths = append(strengths, "Contact details complete")
	}

	skills := strings.TrimSpace(types.Deref(p.Skills))
	add("skills", min(len(skills)/skillCharsPerPt, maxSkillPoints))
	switch {
	case len(skills) > 100:
		strengths = append(strengths, "Comprehensive skill set")
	case len(skills) > 30:
		strengths = append(strengths, "Good skill coverage")
	default:
		gaps = append(gaps, "Limited skills information")
	}

	experience := strings.TrimSpace(types.Deref(p.Experience))
	if experience != "" {
		add("experience", experiencePoints)
	}
	switch {
	case len(experience) > 150:
		add("experience depth", 15)
		strengths = append(strengths, "Detailed work history")
	case len(experience) > 50:
		add("experience depth", 10)
	default:
		gaps = append(gaps, "Limited experience details")
	}

	if p.Education != nil {
		add("education", educationPoints)
		strengths = append(strengths, "Education documented")
	} else {
		gaps = append(gaps, "No education listed")
	}

	if len(strengths) == 0 {
		strengths = []string{"Profile submitted"}
	}
	if len(gaps) == 0 {
		gaps = []string{"None identified"}
	}

	reasoning := "Profile completeness score based on information depth and quality"
	if len(parts) > 0 {
		reasoning += " (" + strings.Join(parts, ", ") + ")"
	}

	return types.ScoreResult{
		Score:     types.ClampScore(total),
		Strengths: strengths,
		Gaps:      gaps,
		Reasoning: reasoning,
		Provider:  Provider,
	}
}
