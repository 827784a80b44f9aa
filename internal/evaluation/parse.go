package evaluation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"candidly/internal/types"
)

// Parsed holds the labeled sections recovered from a grader reply.
type Parsed struct {
	Score        int
	HasScore     bool
	Summary      string
	Strengths    []string
	Improvements []string
}

var (
	integerToken = regexp.MustCompile(`-?\d+`)
	labelLine    = regexp.MustCompile(`^(?i)(score|summary|strengths|improvements)\s*:\s*(.*)$`)
)

// ParseResponse scans a grader reply line by line for SCORE, SUMMARY,
// STRENGTHS and IMPROVEMENTS. Labels may be decorated with markdown
// emphasis or heading marks.
func ParseResponse(text string) Parsed {
	p := Parsed{Strengths: []string{}, Improvements: []string{}}
	var (
		section string
		summary []string
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := labelLine.FindStringSubmatch(stripDecoration(line)); m != nil {
			section = strings.ToLower(m[1])
			rest := strings.TrimSpace(strings.Trim(m[2], "*_ "))
			switch section {
			case "score":
				if score, ok := FirstInteger(rest); ok && !p.HasScore {
					p.Score, p.HasScore = types.ClampScore(score), true
				}
			case "summary":
				if rest != "" {
					summary = append(summary, rest)
				}
			case "strengths":
				p.Strengths = appendItem(p.Strengths, rest)
			case "improvements":
				p.Improvements = appendItem(p.Improvements, rest)
			}
			continue
		}

		switch section {
		case "summary":
			summary = append(summary, line)
		case "strengths":
			if item, ok := bullet(line); ok {
				p.Strengths = appendItem(p.Strengths, item)
			}
		case "improvements":
			if item, ok := bullet(line); ok {
				p.Improvements = appendItem(p.Improvements, item)
			}
		}
	}

	p.Summary = strings.TrimSpace(strings.Join(summary, " "))
	return p
}

// FirstInteger returns the first integer token in s.
func FirstInteger(s string) (int, bool) {
	tok := integerToken.FindString(s)
	if tok == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		if !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		// Out of int range: saturate, the caller clamps anyway.
		if strings.HasPrefix(tok, "-") {
			return 0, true
		}
		return 100, true
	}
	return n, true
}

func stripDecoration(line string) string {
	line = strings.TrimLeft(line, "*#_ ")
	// "**SCORE:** 70" leaves "SCORE:** 70"
	if i := strings.Index(line, ":"); i > 0 {
		line = strings.TrimRight(line[:i], "*_ ") + line[i:]
	}
	return line
}

func bullet(line string) (string, bool) {
	for _, mark := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, mark) {
			return strings.TrimSpace(strings.TrimPrefix(line, mark)), true
		}
	}
	return "", false
}

func appendItem(items []string, item string) []string {
	item = strings.TrimSpace(item)
	if item == "" || strings.EqualFold(item, "none") {
		return items
	}
	return append(items, item)
}
