package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"candidly/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter renders one kind of result in one output format
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

const anyType = "any"

// NewFormatterRegistry creates a registry with json, yaml, text and markdown renderers
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", anyType, &JSONFormatter{})
	registry.RegisterFormatter("yaml", anyType, &YAMLFormatter{})
	registry.RegisterFormatter("text", "ScreeningReport", &ScreeningTextFormatter{})
	registry.RegisterFormatter("markdown", "ScreeningReport", &ScreeningMarkdownFormatter{})
	registry.RegisterFormatter("text", "EvaluationOutcome", &EvaluationTextFormatter{})
	registry.RegisterFormatter("markdown", "EvaluationOutcome", &EvaluationMarkdownFormatter{})
	registry.RegisterFormatter("text", "AuthenticityReport", &AuthenticityTextFormatter{})
	registry.RegisterFormatter("markdown", "AuthenticityReport", &AuthenticityMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a formatter for a format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format renders data with the most specific formatter registered for format.
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[anyType]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ScreeningReport:
		return "ScreeningReport"
	case types.EvaluationOutcome:
		return "EvaluationOutcome"
	case types.AuthenticityReport:
		return "AuthenticityReport"
	default:
		return anyType
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string { return anyType }

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (yf *YAMLFormatter) SupportedType() string { return anyType }

// ScreeningTextFormatter renders a parsed résumé and its score as plain text
type ScreeningTextFormatter struct{}

func (f *ScreeningTextFormatter) Format(data any) (string, error) {
	report, ok := data.(types.ScreeningReport)
	if !ok {
		return "", fmt.Errorf("expected ScreeningReport, got %T", data)
	}

	var output strings.Builder
	p := report.Profile

	output.WriteString("=== CANDIDATE PROFILE ===\n\n")
	fmt.Fprintf(&output, "Name:       %s\n", p.Name)
	fmt.Fprintf(&output, "Email:      %s\n", p.Email)
	fmt.Fprintf(&output, "Phone:      %s\n", orDash(p.Phone))
	fmt.Fprintf(&output, "Location:   %s\n", orDash(p.Location))
	fmt.Fprintf(&output, "Experience: %s\n", orDash(p.Experience))
	fmt.Fprintf(&output, "Skills:     %s\n", orDash(p.Skills))
	fmt.Fprintf(&output, "Education:  %s\n", orDash(p.Education))
	fmt.Fprintf(&output, "Parsed by:  %s\n", report.ParsedBy)

	if s := report.Score; s != nil {
		output.WriteString("\n=== MATCH SCORE ===\n")
		fmt.Fprintf(&output, "Score: %d/100 (%s)\n\n", s.Score, s.Provider)
		writeTextList(&output, "Strengths", s.Strengths)
		writeTextList(&output, "Gaps", s.Gaps)
		if s.Reasoning != "" {
			output.WriteString("Reasoning:\n")
			output.WriteString(s.Reasoning)
			output.WriteString("\n")
		}
	}

	return output.String(), nil
}

func (f *ScreeningTextFormatter) SupportedType() string { return "ScreeningReport" }

// ScreeningMarkdownFormatter renders a parsed résumé and its score as markdown
type ScreeningMarkdownFormatter struct{}

func (f *ScreeningMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(types.ScreeningReport)
	if !ok {
		return "", fmt.Errorf("expected ScreeningReport, got %T", data)
	}

	var output strings.Builder
	p := report.Profile

	fmt.Fprintf(&output, "# %s\n\n", p.Name)
	output.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&output, "| Email | %s |\n", p.Email)
	fmt.Fprintf(&output, "| Phone | %s |\n", orDash(p.Phone))
	fmt.Fprintf(&output, "| Location | %s |\n", orDash(p.Location))
	fmt.Fprintf(&output, "| Experience | %s |\n", orDash(p.Experience))
	fmt.Fprintf(&output, "| Skills | %s |\n", orDash(p.Skills))
	fmt.Fprintf(&output, "| Education | %s |\n", orDash(p.Education))
	fmt.Fprintf(&output, "\n_Parsed by %s_\n", report.ParsedBy)

	if s := report.Score; s != nil {
		output.WriteString("\n## Match Score\n\n")
		fmt.Fprintf(&output, "**Score:** %d/100 (%s)\n\n", s.Score, s.Provider)
		writeMarkdownList(&output, "Strengths", s.Strengths)
		writeMarkdownList(&output, "Gaps", s.Gaps)
		if s.Reasoning != "" {
			output.WriteString("### Reasoning\n\n")
			output.WriteString(s.Reasoning)
			output.WriteString("\n")
		}
	}

	return output.String(), nil
}

func (f *ScreeningMarkdownFormatter) SupportedType() string { return "ScreeningReport" }

// EvaluationTextFormatter renders an interview evaluation as plain text
type EvaluationTextFormatter struct{}

func (f *EvaluationTextFormatter) Format(data any) (string, error) {
	outcome, ok := data.(types.EvaluationOutcome)
	if !ok {
		return "", fmt.Errorf("expected EvaluationOutcome, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== INTERVIEW EVALUATION ===\n\n")
	fmt.Fprintf(&output, "Score: %d/100\n", outcome.Score)
	if outcome.SafetyNet {
		output.WriteString("(default score, the evaluator did not respond)\n")
	}
	output.WriteString("\nSummary:\n")
	output.WriteString(outcome.Summary)
	output.WriteString("\n\n")

	writeTextList(&output, "Strengths", outcome.Strengths)
	writeTextList(&output, "Areas for improvement", outcome.Improvements)

	if len(outcome.Flags) > 0 {
		output.WriteString("=== INTEGRITY FLAGS ===\n\n")
		for i, flag := range outcome.Flags {
			fmt.Fprintf(&output, "%d. [%s] %s\n", i+1, strings.ToUpper(flag.Severity), flag.Kind)
			output.WriteString("   ")
			output.WriteString(flag.Description)
			output.WriteString("\n")
		}
	} else {
		output.WriteString("No integrity flags raised.\n")
	}

	return output.String(), nil
}

func (f *EvaluationTextFormatter) SupportedType() string { return "EvaluationOutcome" }

// EvaluationMarkdownFormatter renders an interview evaluation as markdown
type EvaluationMarkdownFormatter struct{}

func (f *EvaluationMarkdownFormatter) Format(data any) (string, error) {
	outcome, ok := data.(types.EvaluationOutcome)
	if !ok {
		return "", fmt.Errorf("expected EvaluationOutcome, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Interview Evaluation\n\n")
	fmt.Fprintf(&output, "**Score:** %d/100\n\n", outcome.Score)
	output.WriteString("## Summary\n\n")
	output.WriteString(outcome.Summary)
	output.WriteString("\n\n")

	writeMarkdownList(&output, "Strengths", outcome.Strengths)
	writeMarkdownList(&output, "Areas for Improvement", outcome.Improvements)

	if len(outcome.Flags) > 0 {
		output.WriteString("## Integrity Flags\n\n")
		output.WriteString("| Type | Severity | Description |\n|---|---|---|\n")
		for _, flag := range outcome.Flags {
			fmt.Fprintf(&output, "| %s | %s | %s |\n", flag.Kind, flag.Severity, flag.Description)
		}
	}

	return output.String(), nil
}

func (f *EvaluationMarkdownFormatter) SupportedType() string { return "EvaluationOutcome" }

// AuthenticityTextFormatter renders the AI-authorship heuristic as plain text
type AuthenticityTextFormatter struct{}

func (f *AuthenticityTextFormatter) Format(data any) (string, error) {
	report, ok := data.(types.AuthenticityReport)
	if !ok {
		return "", fmt.Errorf("expected AuthenticityReport, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== AUTHENTICITY CHECK ===\n\n")
	fmt.Fprintf(&output, "AI-generated: %s\n", yesNo(report.Detected))
	fmt.Fprintf(&output, "Confidence:   %.2f\n", report.Confidence)
	fmt.Fprintf(&output, "Reason:       %s\n", report.Reason)
	if len(report.MatchedPhrases) > 0 {
		output.WriteString("\n")
		writeTextList(&output, "Matched phrases", report.MatchedPhrases)
	}
	return output.String(), nil
}

func (f *AuthenticityTextFormatter) SupportedType() string { return "AuthenticityReport" }

// AuthenticityMarkdownFormatter renders the AI-authorship heuristic as markdown
type AuthenticityMarkdownFormatter struct{}

func (f *AuthenticityMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(types.AuthenticityReport)
	if !ok {
		return "", fmt.Errorf("expected AuthenticityReport, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Authenticity Check\n\n")
	fmt.Fprintf(&output, "**AI-generated:** %s  \n", yesNo(report.Detected))
	fmt.Fprintf(&output, "**Confidence:** %.2f  \n", report.Confidence)
	fmt.Fprintf(&output, "**Reason:** %s\n\n", report.Reason)
	writeMarkdownList(&output, "Matched Phrases", report.MatchedPhrases)
	return output.String(), nil
}

func (f *AuthenticityMarkdownFormatter) SupportedType() string { return "AuthenticityReport" }

func writeTextList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteString(":\n")
	for _, item := range items {
		b.WriteString("  - ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeMarkdownList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func orDash(s *string) string {
	if v := types.Deref(s); v != "" {
		return v
	}
	return "-"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
