package tls

import (
	"crypto/tls"
	"fmt"
	"os"

	"mercator-hq/apigate/pkg/config"
)

// NewServerConfig converts cfg into a crypto/tls.Config for the HTTP
// server. It returns nil values when TLS is disabled.
func NewServerConfig(cfg config.TLSConfig) (*tls.Config, *CertificateReloader, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	if cfg.CertFile == "" {
		return nil, nil, fmt.Errorf("cert_file is required when TLS is enabled")
	}
	if cfg.KeyFile == "" {
		return nil, nil, fmt.Errorf("key_file is required when TLS is enabled")
	}
	if _, err := os.Stat(cfg.CertFile); err != nil {
		return nil, nil, fmt.Errorf("certificate file not found: %s: %w", cfg.CertFile, err)
	}
	if _, err := os.Stat(cfg.KeyFile); err != nil {
		return nil, nil, fmt.Errorf("key file not found: %s: %w", cfg.KeyFile, err)
	}

	version, err := ParseVersion(cfg.MinVersion)
	if err != nil {
		return nil, nil, err
	}

	interval := cfg.ReloadInterval
	if interval <= 0 {
		interval = config.DefaultTLSReload
	}

	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, interval)
	if err := reloader.Load(); err != nil {
		return nil, nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	// #nosec G402 - MinVersion is validated (TLS 1.0/1.1 rejected)
	tlsConfig := &tls.Config{
		MinVersion:     version,
		GetCertificate: reloader.GetCertificateFunc(),
	}

	return tlsConfig, reloader, nil
}

// ParseVersion converts "1.2" or "1.3" to a tls version constant. An empty
// string selects TLS 1.3.
func ParseVersion(v string) (uint16, error) {
	switch v {
	case "1.2":
		return tls.VersionTLS12, nil
	case "1.3", "":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q (must be 1.2 or 1.3)", v)
	}
}
