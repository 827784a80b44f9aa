// Package resume holds the deterministic resume parser used when every model
// backend fails, and the normalization applied to every parsed profile.
package resume

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"candidly/internal/types"
)

const maxSkills = 15

var (
	emailPattern   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern   = regexp.MustCompile(`[\+\(]?[1-9][0-9 .\-\(\)]{8,}[0-9]`)
	digitRun       = regexp.MustCompile(`\d{3,}`)
	locationLabels = regexp.MustCompile(`(?i)(?:location:|address:|city:|based in)[ \t]*([A-Za-z ,\t]+)`)

	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:currently|presently)\s+(?:at|with)\s+([A-Z][A-Za-z &]+)`),
		regexp.MustCompile(`(?i)(?:working|employed)\s+at\s+([A-Z][A-Za-z &]+)`),
	}
	yearsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s+(?:of\s+)?experience`),
		regexp.MustCompile(`(?i)experience[:\s]+(\d+)\+?\s*years?`),
	}
	dateRangePattern = regexp.MustCompile(`(?i)20\d{2}\s*[-–]\s*(?:20\d{2}|present|current)`)
)

var knownCities = []string{"bangalore", "mumbai", "delhi", "hyderabad", "pune", "chennai"}

var educationKeywords = []string{"bachelor", "master", "phd", "mba", "b.tech", "m.tech", "b.e", "m.e", "bsc", "msc"}

var commonSkills = []string{
	"python", "java", "javascript", "react", "angular", "vue", "node.js", "django", "flask",
	"sql", "mongodb", "postgresql", "mysql", "aws", "azure", "gcp", "docker", "kubernetes",
	"machine learning", "deep learning", "ai", "data science", "tensorflow", "pytorch",
	"html", "css", "typescript", "c++", "c#", "ruby", "php", "swift", "kotlin",
	"git", "agile", "scrum", "rest api", "graphql", "microservices",
}

var skillPatterns = compileSkillPatterns(commonSkills)

func compileSkillPatterns(skills []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(skills))
	for i, s := range skills {
		// Bounded on both sides so "ai" does not match inside "email".
		out[i] = regexp.MustCompile(`(?:^|[^a-z0-9+#.])` + regexp.QuoteMeta(s) + `(?:$|[^a-z0-9+#])`)
	}
	return out
}

// Parse extracts a profile from resume text with pattern matching only.
// It never fails and its result is already normalized.
func Parse(text string) types.CandidateProfile {
	profile := types.CandidateProfile{
		Name:      extractName(text),
		Email:     ExtractEmail(text),
		Phone:     types.Optional(extractPhone(text)),
		Location:  types.Optional(extractLocation(text)),
		Education: types.Optional(extractEducation(text)),
		Skills:    types.Optional(strings.Join(extractSkills(text), ", ")),
	}

	if years, ok := extractExperienceYears(text); ok {
		profile.Experience = types.Optional(fmt.Sprintf("%d years of experience", years))
	} else {
		profile.Experience = types.Optional(extractCurrentCompany(text))
	}

	return Normalize(profile, text)
}

func extractName(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		if i >= 5 {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || len(strings.Fields(line)) > 4 || len(line) <= 5 {
			continue
		}
		if strings.Contains(line, "@") || digitRun.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}

// ExtractEmail returns the first email-shaped token in text, or "".
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

func extractPhone(text string) string {
	return strings.TrimSpace(phonePattern.FindString(text))
}

func extractLocation(text string) string {
	if m := locationLabels.FindStringSubmatch(text); m != nil {
		if loc := strings.Trim(strings.TrimSpace(m[1]), ","); loc != "" {
			return loc
		}
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i >= 10 {
			break
		}
		lower := strings.ToLower(line)
		for _, city := range knownCities {
			if strings.Contains(lower, city) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}

func extractCurrentCompany(text string) string {
	for _, p := range companyPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func extractExperienceYears(text string) (int, bool) {
	for _, p := range yearsPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}

	// Rough estimate: one year per dated role.
	if n := len(dateRangePattern.FindAllString(text, -1)); n > 0 {
		return n, true
	}
	return 0, false
}

func extractEducation(text string) string {
	for _, line := range strings.Split(strings.ToLower(text), "\n") {
		for _, kw := range educationKeywords {
			if strings.Contains(line, kw) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}

func extractSkills(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	seen := make(map[string]bool)
	for i, p := range skillPatterns {
		if len(found) == maxSkills {
			break
		}
		if !p.MatchString(lower) {
			continue
		}
		title := titleCase(commonSkills[i])
		if !seen[title] {
			seen[title] = true
			found = append(found, title)
		}
	}
	return found
}

// titleCase upper-cases every letter that follows a non-letter.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !prevLetter {
				r = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
