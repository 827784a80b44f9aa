package cli

import (
	"context"
	"fmt"
	"time"

	"candidly/internal/observability"
	"candidly/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interview and recruiter HTTP API",
	Long: `Start the HTTP server for candidate interviews and the recruiter API.

Candidate endpoints (/api/interview/...) authenticate with the session token
returned by upload-resume. Recruiter endpoints (/api/recruitment, /api/candidates)
require one of server.apiKeys when any is configured.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates; both are
  reloaded when the files change`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().Bool("watch-prompts", false, "Reload prompt files when they change (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	flags := cmd.Flags()
	override := func(name string, target *string) {
		if flags.Changed(name) {
			*target, _ = flags.GetString(name)
		}
	}
	override("port", &cfg.Server.Port)
	override("host", &cfg.Server.Host)
	override("tls-mode", &cfg.Server.TLS.Mode)
	override("cert-file", &cfg.Server.TLS.CertFile)
	override("key-file", &cfg.Server.TLS.KeyFile)
	if flags.Changed("watch-prompts") {
		cfg.Server.WatchPrompts, _ = flags.GetBool("watch-prompts")
	}

	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	obs, err := observability.NewManager(ctx, observability.SettingsFromConfig(cfg, Version), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()

	app, err := newApplication(ctx, cfg, logger, obs.Metrics())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.LogError(err, "Failed to close storage")
		}
	}()

	srv := server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), app.service, app.registry, obs, logger)
	return srv.Start(ctx)
}
