package config

import "time"

// Config is the root configuration structure for apigate.
type Config struct {
	// Server contains HTTP listener configuration.
	Server ServerConfig `yaml:"server"`

	// Gateway contains outbound dispatch configuration.
	Gateway GatewayConfig `yaml:"gateway"`

	// Cache selects and configures the shared HTTP response cache.
	Cache CacheConfig `yaml:"cache"`

	// Catalog locates the project/schema/operation catalog file.
	Catalog CatalogConfig `yaml:"catalog"`

	// Logs configures request-log capture, storage and the ingestion API.
	Logs LogsConfig `yaml:"logs"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// RateLimit throttles gateway calls per project key.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Secrets resolves ${secret:name} references in catalog credentials.
	Secrets SecretsConfig `yaml:"secrets"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits inbound request bodies.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// TLS terminates HTTPS on the listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS for the gateway listener.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM files. Both are required when enabled.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked for
	// renewal.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// GatewayConfig contains configuration for calls to origin APIs.
type GatewayConfig struct {
	// AppOrigin is the base URL of the dashboard that debug links point at.
	// Default: "http://localhost:3000"
	AppOrigin string `yaml:"app_origin"`

	// DispatchTimeout bounds a single outbound call. Calls are never retried.
	// Default: 60s
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`

	// MaxIdleConns is the transport-wide idle connection limit.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the per-origin idle connection limit.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes idle origin connections.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// ServerSelection picks the schema server a call is sent to: "first"
	// or "round_robin".
	// Default: "first"
	ServerSelection string `yaml:"server_selection"`
}

// CacheConfig selects the HTTP response cache backend.
type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Memory configures the in-process cache.
	Memory MemoryCacheConfig `yaml:"memory"`

	// Redis configures the shared cache.
	Redis RedisConfig `yaml:"redis"`
}

// MemoryCacheConfig configures the in-process response cache.
type MemoryCacheConfig struct {
	// Capacity is the maximum number of cached responses. 0 means unbounded.
	// Default: 10000
	Capacity uint64 `yaml:"capacity"`
}

// RedisConfig configures the Redis response cache.
type RedisConfig struct {
	// Address is host:port of the Redis server.
	Address string `yaml:"address"`

	// Password is the optional AUTH password.
	Password string `yaml:"password"`

	// DB selects the logical database.
	DB int `yaml:"db"`

	// KeyPrefix is prepended to every cache key.
	// Default: "apigate:"
	KeyPrefix string `yaml:"key_prefix"`
}

// CatalogConfig locates the catalog file.
type CatalogConfig struct {
	// Path is the YAML catalog file.
	// Default: "./catalog.yaml"
	Path string `yaml:"path"`

	// Watch reloads the catalog when the file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Git, when Repository is set, clones the catalog from a git
	// repository and polls it for new commits. Path is then ignored.
	Git CatalogGitConfig `yaml:"git"`
}

// CatalogGitConfig configures a git-hosted catalog.
type CatalogGitConfig struct {
	// Repository is the clone URL or a local repository path.
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// File is the catalog file relative to the repository root.
	// Default: "catalog.yaml"
	File string `yaml:"file"`

	// LocalPath is where the repository is cloned.
	// Default: "<tmp>/apigate-catalog"
	LocalPath string `yaml:"local_path"`

	// PollInterval is how often the remote is pulled. Zero disables polling.
	// Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Auth selects credentials for the remote.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures git transport credentials.
type GitAuthConfig struct {
	// Type is "none", "token" or "ssh".
	// Default: "none"
	Type string `yaml:"type"`

	// Token is sent as the HTTP basic-auth password.
	Token string `yaml:"token"`

	// SSHKeyPath is a private key file readable only by its owner.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase decrypts SSHKeyPath.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// LogsConfig configures request-log capture and storage.
type LogsConfig struct {
	// Enabled controls whether request logs are captured.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Mode is "embedded" (write to local storage) or "remote" (POST to a
	// logs service).
	// Default: "embedded"
	Mode string `yaml:"mode"`

	// Endpoint is the base URL of the remote logs service.
	// Required when Mode is "remote".
	Endpoint string `yaml:"endpoint"`

	// Token is the bearer token for the logs service. The embedded logs API
	// requires it on ingestion when set.
	Token string `yaml:"token"`

	// Storage selects the local log storage backend.
	Storage LogStorageConfig `yaml:"storage"`

	// Recorder configures background delivery.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention configures pruning of stored logs.
	Retention RetentionConfig `yaml:"retention"`

	// Query configures listing limits.
	Query QueryConfig `yaml:"query"`
}

// LogStorageConfig selects the local log store.
type LogStorageConfig struct {
	// Backend is "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// MemoryMaxRecords caps the memory backend. 0 means unbounded.
	MemoryMaxRecords int `yaml:"memory_max_records"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/requestlogs.db"
	Path string `yaml:"path"`

	// Driver is "sqlite3" (mattn, cgo) or "sqlite" (modernc, pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig configures background log delivery.
type RecorderConfig struct {
	// Workers is the number of delivery goroutines.
	// Default: 4
	Workers int `yaml:"workers"`

	// QueueSize bounds pending deliveries. Tasks beyond it are dropped.
	// Default: 1000
	QueueSize int `yaml:"queue_size"`

	// WriteTimeout bounds a single delivery.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// GracePeriod bounds how long shutdown waits for pending deliveries.
	// Default: 10s
	GracePeriod time.Duration `yaml:"grace_period"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to keep logs. A negative value keeps
	// them forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords caps the number of stored logs. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression. "off" disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchivePath, when set, is a directory that receives a JSON export of
	// every batch before it is deleted.
	ArchivePath string `yaml:"archive_path"`
}

// QueryConfig contains listing limits for the logs API.
type QueryConfig struct {
	// DefaultLimit applies when a request sets no limit.
	// Default: 50
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps requested limits.
	// Default: 1000
	MaxLimit int `yaml:"max_limit"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks credentials in logged values.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// RedactPatterns contains additional redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "apigate"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "apigate"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimitConfig throttles /gateway/run per project key.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Requests is the number of calls allowed per Window.
	// Default: 600
	Requests int `yaml:"requests"`

	// Window is the limiter window.
	// Default: 1m
	Window time.Duration `yaml:"window"`
}

// SecretsConfig configures secret providers for catalog credentials.
type SecretsConfig struct {
	// EnvPrefix prefixes the environment variable a secret is read from:
	// "petstore-token" is read from APIGATE_SECRET_PETSTORE_TOKEN.
	// Default: "APIGATE_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir, when set, holds one file per secret, named after the secret.
	// Files are tried before the environment.
	Dir string `yaml:"dir"`

	// CacheTTL bounds how long a resolved secret is reused.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}
