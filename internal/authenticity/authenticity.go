// Package authenticity estimates whether interview answers were produced by a
// language model rather than typed or spoken by the candidate.
package authenticity

import (
	"math"
	"regexp"
	"strings"

	"candidly/internal/types"
)

// DetectionThreshold is the confidence at which text is reported as generated.
const DetectionThreshold = 0.5

const (
	phraseWeight    = 0.2
	maxPhraseScore  = 0.6
	structureWeight = 0.2
	fluencyWeight   = 0.2

	longSentenceWords = 25
	structureMinWords = 200
	fluencyMinWords   = 100
)

type phrase struct {
	label string
	re    *regexp.Regexp
	// decisive phrases alone push confidence to the phrase cap
	decisive bool
}

var phrases = []phrase{
	{label: "as an ai language model", re: regexp.MustCompile(`(?i)\bas an ai language model\b`), decisive: true},
	{label: "as an ai", re: regexp.MustCompile(`(?i)\bas an ai\b(?: language model)?`)},
	{label: "i don't have personal experience", re: regexp.MustCompile(`(?i)\bi (?:don't|do not) have personal experiences?\b`)},
	{label: "it is important to note", re: regexp.MustCompile(`(?i)\bit(?:'s| is) important to note\b`)},
	{label: "in conclusion", re: regexp.MustCompile(`(?i)\bin conclusion\b`)},
	{label: "furthermore", re: regexp.MustCompile(`(?i)\bfurthermore\b`)},
	{label: "moreover", re: regexp.MustCompile(`(?i)\bmoreover\b`)},
	{label: "delve", re: regexp.MustCompile(`(?i)\bdelv(?:e|es|ing)\b`)},
	{label: "in summary", re: regexp.MustCompile(`(?i)\bin summary\b`)},
	{label: "i hope this helps", re: regexp.MustCompile(`(?i)\bi hope this helps\b`)},
	{label: "certainly!", re: regexp.MustCompile(`(?i)\bcertainly!`)},
	{label: "great question", re: regexp.MustCompile(`(?i)\bgreat question\b`)},
}

var (
	disfluency    = regexp.MustCompile(`(?i)\b(?:um|uh|like|you know|hmm)\b`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

// Analyze scores the combined texts. Empty input yields a zero, undetected report.
func Analyze(texts ...string) types.AuthenticityReport {
	text := strings.TrimSpace(strings.Join(texts, " "))
	if text == "" {
		return types.AuthenticityReport{MatchedPhrases: []string{}, Reason: "no text"}
	}

	var (
		confidence float64
		reasons    []string
		matched    = []string{}
		decisive   bool
	)

	for _, p := range phrases {
		if p.re.MatchString(text) {
			matched = append(matched, p.label)
			decisive = decisive || p.decisive
		}
	}
	if len(matched) > 0 {
		score := math.Min(maxPhraseScore, phraseWeight*float64(len(matched)))
		if decisive {
			score = maxPhraseScore
		}
		confidence += score
		reasons = append(reasons, "AI phrases: "+strings.Join(matched, ", "))
	}

	words := len(strings.Fields(text))
	if avg := averageSentenceLength(text); avg > longSentenceWords && words > structureMinWords {
		confidence += structureWeight
		reasons = append(reasons, "unusually long, uniform sentences")
	}

	if words > fluencyMinWords && !disfluency.MatchString(text) {
		confidence += fluencyWeight
		reasons = append(reasons, "no natural speech fillers")
	}

	confidence = math.Min(1.0, confidence)
	// keep 0.6 + 0.2 from drifting to 0.7999...
	confidence = math.Round(confidence*100) / 100

	reason := "no indicators"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	return types.AuthenticityReport{
		Confidence:     confidence,
		Detected:       confidence >= DetectionThreshold,
		MatchedPhrases: matched,
		Reason:         reason,
	}
}

func averageSentenceLength(text string) float64 {
	var sentences, words int
	for _, s := range sentenceSplit.Split(text, -1) {
		n := len(strings.Fields(s))
		if n == 0 {
			continue
		}
		sentences++
		words += n
	}
	if sentences == 0 {
		return 0
	}
	return float64(words) / float64(sentences)
}
