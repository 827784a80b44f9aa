package cli

import (
	"context"

	"candidly/internal/authenticity"
	"candidly/internal/common"
	"candidly/internal/types"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect [text-file]",
	Short: "Check text for signs of AI authorship",
	Long: `Run the authenticity heuristic over a text file and report whether it
looks AI-generated, with the confidence and the phrases that matched.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutput(&detectConfig),
	RunE:    runDetect,
}

var detectConfig common.CommandConfig

func init() {
	addOutputFlags(detectCmd, &detectConfig)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	return common.RunCommand(cmd.Context(), logger, detectConfig, cfg.App.MaxFileSize, args,
		func(fp *common.FileProcessor, args []string) (string, error) {
			return fp.ReadText(args[0])
		},
		func(_ context.Context, text string) (types.AuthenticityReport, error) {
			return authenticity.Analyze(text), nil
		},
		nil)
}
