package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateGateway(&cfg.Gateway)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateLogs(&cfg.Logs)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateSecrets(&cfg.Secrets)...)
	errs = append(errs, validateCatalogGit(&cfg.Catalog.Git)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 || cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be between 0 and 10MB"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls", Message: "cert_file and key_file are required when TLS is enabled"})
		}
		if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{Field: "server.tls.min_version", Message: "min version must be 1.2 or 1.3"})
		}
	}

	return errs
}

func validateGateway(cfg *GatewayConfig) []FieldError {
	var errs []FieldError

	if u, err := url.Parse(cfg.AppOrigin); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{Field: "gateway.app_origin", Message: "app origin must be an absolute URL"})
	}
	if cfg.DispatchTimeout <= 0 {
		errs = append(errs, FieldError{Field: "gateway.dispatch_timeout", Message: "dispatch timeout must be positive"})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{Field: "gateway.max_idle_conns", Message: "must be non-negative"})
	}
	if cfg.MaxIdleConnsPerHost < 0 {
		errs = append(errs, FieldError{Field: "gateway.max_idle_conns_per_host", Message: "must be non-negative"})
	}
	switch cfg.ServerSelection {
	case "first", "round_robin":
	default:
		errs = append(errs, FieldError{
			Field:   "gateway.server_selection",
			Message: fmt.Sprintf("unsupported strategy %q (must be first or round_robin)", cfg.ServerSelection),
		})
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "none":
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{Field: "cache.redis.address", Message: "address is required for the redis backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("unsupported backend %q (must be memory, redis or none)", cfg.Backend),
		})
	}

	return errs
}

func validateLogs(cfg *LogsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "embedded":
	case "remote":
		if u, err := url.Parse(cfg.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{Field: "logs.endpoint", Message: "endpoint must be an absolute URL in remote mode"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "logs.mode",
			Message: fmt.Sprintf("unsupported mode %q (must be embedded or remote)", cfg.Mode),
		})
	}

	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "logs.storage.sqlite.path", Message: "path is required"})
		}
		if d := cfg.Storage.SQLite.Driver; d != "sqlite3" && d != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "logs.storage.sqlite.driver",
				Message: fmt.Sprintf("unsupported driver %q (must be sqlite3 or sqlite)", d),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "logs.storage.backend",
			Message: fmt.Sprintf("unsupported backend %q (must be sqlite or memory)", cfg.Storage.Backend),
		})
	}

	if cfg.Recorder.Workers < 1 {
		errs = append(errs, FieldError{Field: "logs.recorder.workers", Message: "at least one worker is required"})
	}
	if cfg.Recorder.QueueSize < 1 {
		errs = append(errs, FieldError{Field: "logs.recorder.queue_size", Message: "queue size must be positive"})
	}

	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "logs.retention.max_records", Message: "must be non-negative"})
	}
	if s := cfg.Retention.PruneSchedule; s != "off" {
		if _, err := cron.ParseStandard(s); err != nil {
			errs = append(errs, FieldError{
				Field:   "logs.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	if cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		errs = append(errs, FieldError{Field: "logs.query.default_limit", Message: "default limit exceeds max limit"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("unknown sampler %q", cfg.Tracing.Sampler),
			})
		}
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0 and 1"})
	}

	return errs
}

func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	if cfg.Requests < 1 {
		errs = append(errs, FieldError{Field: "rate_limit.requests", Message: "requests must be positive"})
	}
	if cfg.Window <= 0 {
		errs = append(errs, FieldError{Field: "rate_limit.window", Message: "window must be positive"})
	}

	return errs
}

func validateSecrets(cfg *SecretsConfig) []FieldError {
	if cfg.CacheTTL < 0 {
		return []FieldError{{Field: "secrets.cache_ttl", Message: "cache TTL must be non-negative"}}
	}
	return nil
}

func validateCatalogGit(cfg *CatalogGitConfig) []FieldError {
	if cfg.Repository == "" {
		return nil
	}

	var errs []FieldError
	if cfg.PollInterval < 0 {
		errs = append(errs, FieldError{Field: "catalog.git.poll_interval", Message: "poll interval must be non-negative"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "catalog.git.timeout", Message: "timeout must be positive"})
	}
	switch cfg.Auth.Type {
	case "none", "":
	case "token":
		if cfg.Auth.Token == "" {
			errs = append(errs, FieldError{Field: "catalog.git.auth.token", Message: "token auth requires a token"})
		}
	case "ssh":
		if cfg.Auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{Field: "catalog.git.auth.ssh_key_path", Message: "ssh auth requires ssh_key_path"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "catalog.git.auth.type",
			Message: fmt.Sprintf("unsupported auth type %q (must be none, token or ssh)", cfg.Auth.Type),
		})
	}
	return errs
}
