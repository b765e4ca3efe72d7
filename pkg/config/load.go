package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "APIGATE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over Default(), so omitted fields keep their defaults
// and explicit zero values (including false) are preserved. The result is
// validated; environment variables are not consulted.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides named APIGATE_SECTION_FIELD (for example
// APIGATE_SERVER_LISTEN_ADDRESS). Variables from a .env file in the working
// directory are loaded first without replacing variables already set.
// An empty path skips the file and starts from defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	// Gateway overrides
	envString("GATEWAY_APP_ORIGIN", &cfg.Gateway.AppOrigin)
	envDuration("GATEWAY_DISPATCH_TIMEOUT", &cfg.Gateway.DispatchTimeout)
	envString("GATEWAY_SERVER_SELECTION", &cfg.Gateway.ServerSelection)

	// Secrets overrides
	envString("SECRETS_DIR", &cfg.Secrets.Dir)

	// Cache overrides
	envString("CACHE_BACKEND", &cfg.Cache.Backend)
	envString("CACHE_REDIS_ADDRESS", &cfg.Cache.Redis.Address)
	envString("CACHE_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	envInt("CACHE_REDIS_DB", &cfg.Cache.Redis.DB)

	// Catalog overrides
	envString("CATALOG_PATH", &cfg.Catalog.Path)
	envBool("CATALOG_WATCH", &cfg.Catalog.Watch)
	envString("CATALOG_GIT_REPOSITORY", &cfg.Catalog.Git.Repository)
	envString("CATALOG_GIT_BRANCH", &cfg.Catalog.Git.Branch)
	envString("CATALOG_GIT_AUTH_TOKEN", &cfg.Catalog.Git.Auth.Token)

	// Logs overrides
	envBool("LOGS_ENABLED", &cfg.Logs.Enabled)
	envString("LOGS_MODE", &cfg.Logs.Mode)
	envString("LOGS_ENDPOINT", &cfg.Logs.Endpoint)
	envString("LOGS_TOKEN", &cfg.Logs.Token)
	envString("LOGS_STORAGE_BACKEND", &cfg.Logs.Storage.Backend)
	envString("LOGS_SQLITE_PATH", &cfg.Logs.Storage.SQLite.Path)
	envString("LOGS_SQLITE_DRIVER", &cfg.Logs.Storage.SQLite.Driver)
	envInt("LOGS_RETENTION_DAYS", &cfg.Logs.Retention.Days)
	envString("LOGS_RETENTION_PRUNE_SCHEDULE", &cfg.Logs.Retention.PruneSchedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Rate limit overrides
	envBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	envInt("RATE_LIMIT_REQUESTS", &cfg.RateLimit.Requests)
	envDuration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
