package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		TLSConfig:    tlsConfig,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	s.startWatchers()
	s.displayServerInfo(httpServer.Addr, tlsConfig != nil)

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", httpServer.Addr,
			"tls_enabled", tlsConfig != nil)

		var err error
		if tlsConfig != nil {
			// Certificates come from GetCertificate.
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.Close()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

// startWatchers hot-reloads prompt files and file-based certificates.
func (s *Server) startWatchers() {
	var files []string
	if s.AppConfig.Server.WatchPrompts {
		for _, path := range s.AppConfig.PromptFiles() {
			files = append(files, path)
		}
		slices.Sort(files)
	}
	if s.certs != nil && s.certs.watchable() {
		files = append(files, s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
	}
	if len(files) == 0 {
		return
	}

	s.watcher = NewFileWatcher("config", files, time.Second, s.reloadWatched, s.Logger)
	if err := s.watcher.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start file watcher")
		s.watcher = nil
	}
}

func (s *Server) reloadWatched() {
	if s.AppConfig.Server.WatchPrompts {
		if err := s.AppConfig.ReloadPrompts(); err != nil {
			s.Logger.LogError(err, "Failed to reload prompt files, keeping previous prompts")
		} else {
			s.Logger.Info("Prompt files reloaded")
		}
	}
	if s.certs != nil && s.certs.watchable() {
		_ = s.certs.Reload()
	}
}

func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Close()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// Close stops the rate limiter janitor and the file watcher.
func (s *Server) Close() {
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop file watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
}
