// Package tls builds the gateway's server-side TLS configuration.
//
// NewServerConfig loads the configured certificate pair, validates it, and
// returns a crypto/tls.Config whose GetCertificate is served by a
// CertificateReloader. Starting the reloader polls the files at the
// configured interval so renewed certificates are picked up without a
// restart.
//
//	tlsCfg, reloader, err := tls.NewServerConfig(cfg.Server.TLS)
//	if err != nil {
//		return err
//	}
//	go reloader.Run(ctx)
package tls
