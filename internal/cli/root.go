package cli

import (
	"context"
	"fmt"

	"candidly/internal/config"
	"candidly/internal/errors"

	"github.com/spf13/cobra"
)

type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var configFile string

var rootCmd = &cobra.Command{
	Use:   "candidly",
	Short: "AI-assisted candidate screening and interviews",
	Long: `Candidly screens résumés and runs structured AI interviews.

It extracts and scores résumés against job requirements, conducts a phased
interview with the candidate, and grades the finished interview together with
proctoring signals. Every AI step degrades to a deterministic fallback when
no model backend is available.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return nil
		}
		cfg, err := config.LoadConfigFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration from %s: %w", configFile, err)
		}
		logger, err := errors.New(cfg.App.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cmd.SetContext(withRuntime(cmd.Context(), cfg, logger))
		return nil
	},
}

// Execute runs the root command with cfg and logger available to every
// subcommand. --config replaces both before the subcommand runs.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	rootCmd.SetContext(withRuntime(ctx, cfg, logger))
	return rootCmd.Execute()
}

func withRuntime(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	return context.WithValue(ctx, loggerKey, logger)
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./config.yaml, $HOME/.candidly, /etc/candidly)")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
