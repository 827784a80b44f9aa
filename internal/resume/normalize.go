package resume

import (
	"regexp"
	"strings"

	"candidly/internal/types"
)

var emailShape = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// IsEmailShaped reports whether s looks like a single email address.
func IsEmailShaped(s string) bool {
	return emailShape.MatchString(s)
}

// Normalize fills required fields with placeholders and clears blank optional
// fields. rawText is the resume text used to recover a missing email.
func Normalize(p types.CandidateProfile, rawText string) types.CandidateProfile {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || strings.EqualFold(p.Name, "unknown") {
		p.Name = types.UnknownCandidateName
	}

	p.Email = strings.TrimSpace(p.Email)
	if !IsEmailShaped(p.Email) {
		p.Email = ExtractEmail(rawText)
		if !IsEmailShaped(p.Email) {
			p.Email = types.PlaceholderEmail
		}
	}

	p.Phone = clean(p.Phone)
	p.Location = clean(p.Location)
	p.Experience = clean(p.Experience)
	p.Skills = clean(p.Skills)
	p.Education = clean(p.Education)
	return p
}

func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "n/a") {
		return nil
	}
	return &v
}
