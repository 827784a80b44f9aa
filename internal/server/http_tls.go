package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"time"

	"candidly/internal/config"
	"candidly/internal/errors"
)

// certReloader serves the current server certificate and swaps it when
// the files on disk change. Certificates given as content never reload.
type certReloader struct {
	mu   sync.RWMutex
	cfg  config.TLSConfig
	cert *tls.Certificate

	lastReload time.Time
	lastError  error
	reloads    int
	logger     *errors.Logger
}

func newCertReloader(cfg config.TLSConfig, logger *errors.Logger) (*certReloader, error) {
	cr := &certReloader{cfg: cfg, logger: logger}
	if err := cr.Reload(); err != nil {
		return nil, err
	}
	return cr, nil
}

// Reload reads the certificate again. On failure the previous one stays.
func (cr *certReloader) Reload() error {
	cert, err := loadServerCertificate(cr.cfg)

	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.lastReload = time.Now()
	cr.lastError = err
	if err != nil {
		cr.logger.LogError(err, "Failed to load TLS certificate")
		return err
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		if leaf, perr := x509.ParseCertificate(cert.Certificate[0]); perr == nil {
			cert.Leaf = leaf
		}
	}
	cr.cert = &cert
	cr.reloads++
	cr.logger.Info("TLS certificate loaded", "loads", cr.reloads)
	return nil
}

func (cr *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.cert, nil
}

// watchable reports whether the certificate comes from files.
func (cr *certReloader) watchable() bool {
	return cr.cfg.CertContent == "" && cr.cfg.CertFile != ""
}

// Status is reported by /health.
func (cr *certReloader) Status() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	status := map[string]any{
		"loads":       cr.reloads,
		"last_reload": cr.lastReload,
	}
	if cr.lastError != nil {
		status["last_error"] = cr.lastError.Error()
	}
	if cr.cert != nil && cr.cert.Leaf != nil {
		remaining := time.Until(cr.cert.Leaf.NotAfter)
		status["not_after"] = cr.cert.Leaf.NotAfter
		status["expires_in_hours"] = int(remaining.Hours())
	}
	return status
}

// buildTLSConfig returns nil when TLS is disabled.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil, nil
	case "server":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", s.TLSConfig.Mode)
	}

	certs, err := newCertReloader(s.TLSConfig, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up TLS: %w", err)
	}
	s.certs = certs

	tlsConfig := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: certs.GetCertificate,
	}
	if s.TLSConfig.MinVersion == "1.3" {
		tlsConfig.MinVersion = tls.VersionTLS13
	}
	return tlsConfig, nil
}

// loadServerCertificate loads the server certificate from content or files
func loadServerCertificate(cfg config.TLSConfig) (tls.Certificate, error) {
	if cfg.CertContent != "" && cfg.KeyContent != "" {
		cert, err := tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		return cert, nil
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
		return cert, nil
	}

	return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
}
