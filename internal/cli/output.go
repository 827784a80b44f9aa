package cli

import (
	"candidly/internal/common"
	"candidly/internal/observability"

	"github.com/spf13/cobra"
)

// addOutputFlags registers --output and --format for a command writing into out.
func addOutputFlags(cmd *cobra.Command, out *common.CommandConfig) {
	cmd.Flags().StringVarP(&out.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&out.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutput applies the configured default format and validates it.
func resolveOutput(out *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if out.OutputFormat == "" {
			out.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(out.OutputFormat, cfg.App.SupportedFormats)
	}
}

// offlineMetrics is used by one-shot commands, which export no telemetry.
func offlineMetrics(cmd *cobra.Command) *observability.Metrics {
	return observability.Disabled(getLoggerFromContext(cmd.Context())).Metrics()
}
