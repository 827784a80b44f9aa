package cli

import (
	"context"
	"path/filepath"

	"candidly/internal/common"
	"candidly/internal/extract"
	"candidly/internal/types"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [resume-file]",
	Short: "Extract a candidate profile from a résumé",
	Long: `Extract text from a PDF or DOCX résumé and parse it into a candidate
profile. Model backends are tried in the configured order; when none
responds the rule-based parser is used.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutput(&parseConfig),
	RunE:    runParse,
}

var scoreCmd = &cobra.Command{
	Use:   "score [resume-file]",
	Short: "Parse a résumé and score it against job requirements",
	Long: `Parse a résumé and compute an ATS score (0-100) against job requirements.
Requirements are read from --requirements: YAML or JSON files are decoded
into title, department, location and requirements; any other file is used
as free text. When no model backend responds the rule-based scorer is used.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutput(&scoreConfig),
	RunE:    runScore,
}

var (
	parseConfig      common.CommandConfig
	scoreConfig      common.CommandConfig
	scoreRequirement string
)

func init() {
	addOutputFlags(parseCmd, &parseConfig)
	addOutputFlags(scoreCmd, &scoreConfig)
	scoreCmd.Flags().StringVarP(&scoreRequirement, "requirements", "r", "", "Job requirements file (yaml, json or text)")
}

type resumeInput struct {
	filename     string
	text         string
	requirements types.JobRequirements
}

func readResume(fp *common.FileProcessor, filename string) (resumeInput, error) {
	data, err := fp.ReadFile(filename)
	if err != nil {
		return resumeInput{}, err
	}
	text, err := extract.Extract(filepath.Base(filename), data)
	if err != nil {
		return resumeInput{}, err
	}
	return resumeInput{filename: filename, text: text}, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	c := newCore(cfg, logger, offlineMetrics(cmd))

	return common.RunCommand(cmd.Context(), logger, parseConfig, cfg.App.MaxFileSize, args,
		func(fp *common.FileProcessor, args []string) (resumeInput, error) {
			return readResume(fp, args[0])
		},
		func(ctx context.Context, in resumeInput) (types.ScreeningReport, error) {
			parsed := c.capabilities.ParseResume(ctx, in.text)
			return types.ScreeningReport{Profile: parsed.Value, ParsedBy: parsed.Provider}, nil
		},
		func(in resumeInput, out common.CommandConfig) {
			logger.Info("Parsing résumé",
				"file", in.filename,
				"text_chars", len(in.text),
				"output_format", out.OutputFormat)
		})
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	c := newCore(cfg, logger, offlineMetrics(cmd))

	return common.RunCommand(cmd.Context(), logger, scoreConfig, cfg.App.MaxFileSize, args,
		func(fp *common.FileProcessor, args []string) (resumeInput, error) {
			in, err := readResume(fp, args[0])
			if err != nil {
				return in, err
			}
			in.requirements, err = common.LoadRequirements(fp, scoreRequirement)
			return in, err
		},
		func(ctx context.Context, in resumeInput) (types.ScreeningReport, error) {
			parsed := c.capabilities.ParseResume(ctx, in.text)
			scored := c.capabilities.ScoreCandidate(ctx, parsed.Value, in.requirements)
			score := scored.Value
			if score.Provider == "" {
				score.Provider = scored.Provider
			}
			return types.ScreeningReport{Profile: parsed.Value, ParsedBy: parsed.Provider, Score: &score}, nil
		},
		func(in resumeInput, out common.CommandConfig) {
			logger.Info("Scoring résumé",
				"file", in.filename,
				"text_chars", len(in.text),
				"has_requirements", in.requirements.Requirements != "",
				"output_format", out.OutputFormat)
		})
}
