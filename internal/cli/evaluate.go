package cli

import (
	"context"
	"strings"

	"candidly/internal/common"
	"candidly/internal/evaluation"
	"candidly/internal/types"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [transcript-file]",
	Short: "Grade a finished interview transcript",
	Long: `Grade an interview transcript and report a score, summary and integrity
flags. Proctoring signals recorded during the interview are passed with
--faces, --noise and --ai. Candidate answers (lines starting with
"Candidate:") are also checked for AI-authorship markers.

The evaluation always produces a result: when no model backend responds a
default safety-net score is reported.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutput(&evaluateConfig),
	RunE:    runEvaluate,
}

var (
	evaluateConfig       common.CommandConfig
	evaluateRequirements string
	evaluateSignals      types.IntegritySignals
)

func init() {
	addOutputFlags(evaluateCmd, &evaluateConfig)
	evaluateCmd.Flags().StringVarP(&evaluateRequirements, "requirements", "r", "", "Job requirements file (yaml, json or text)")
	evaluateCmd.Flags().BoolVar(&evaluateSignals.MultipleFaces, "faces", false, "Multiple faces were detected")
	evaluateCmd.Flags().BoolVar(&evaluateSignals.BackgroundNoise, "noise", false, "Background voices were detected")
	evaluateCmd.Flags().BoolVar(&evaluateSignals.SuspectedAI, "ai", false, "The proctoring client suspected AI assistance")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	c := newCore(cfg, logger, offlineMetrics(cmd))

	return common.RunCommand(cmd.Context(), logger, evaluateConfig, cfg.App.MaxFileSize, args,
		func(fp *common.FileProcessor, args []string) (evaluation.Input, error) {
			transcript, err := fp.ReadText(args[0])
			if err != nil {
				return evaluation.Input{}, err
			}
			reqs, err := common.LoadRequirements(fp, evaluateRequirements)
			if err != nil {
				return evaluation.Input{}, err
			}
			return evaluation.Input{
				Transcript:   transcript,
				Requirements: reqs.String(),
				Signals:      evaluateSignals,
				Responses:    candidateAnswers(transcript),
			}, nil
		},
		func(ctx context.Context, in evaluation.Input) (types.EvaluationOutcome, error) {
			return c.pipeline.Evaluate(ctx, in), nil
		},
		func(in evaluation.Input, out common.CommandConfig) {
			logger.Info("Evaluating interview",
				"transcript_chars", len(in.Transcript),
				"answers", len(in.Responses),
				"output_format", out.OutputFormat)
		})
}

// candidateAnswers picks the candidate's turns out of a rendered transcript.
// Turns are separated by blank lines.
func candidateAnswers(transcript string) []string {
	var answers []string
	for turn := range strings.SplitSeq(transcript, "\n\n") {
		if answer, ok := strings.CutPrefix(strings.TrimSpace(turn), "Candidate:"); ok {
			if answer = strings.TrimSpace(answer); answer != "" {
				answers = append(answers, answer)
			}
		}
	}
	return answers
}
