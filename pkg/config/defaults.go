package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576  // 1MB
	DefaultMaxBodyBytes    = 10485760 // 10MB
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute

	// Gateway defaults
	DefaultAppOrigin           = "http://localhost:3000"
	DefaultDispatchTimeout     = 60 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultServerSelection     = "first"

	// Cache defaults
	DefaultCacheBackend   = "memory"
	DefaultCacheCapacity  = uint64(10000)
	DefaultRedisKeyPrefix = "apigate:"

	// Catalog defaults
	DefaultCatalogPath = "./catalog.yaml"

	// Logs defaults
	DefaultLogsEnabled          = true
	DefaultLogsMode             = "embedded"
	DefaultLogsStorageBackend   = "sqlite"
	DefaultSQLitePath           = "data/requestlogs.db"
	DefaultSQLiteDriver         = "sqlite3"
	DefaultSQLiteMaxOpenConns   = 10
	DefaultSQLiteMaxIdleConns   = 5
	DefaultSQLiteWALMode        = true
	DefaultSQLiteBusyTimeout    = 5 * time.Second
	DefaultRecorderWorkers      = 4
	DefaultRecorderQueueSize    = 1000
	DefaultRecorderWriteTimeout = 5 * time.Second
	DefaultRecorderGracePeriod  = 10 * time.Second
	DefaultRetentionDays        = 30
	DefaultRetentionSchedule    = "0 3 * * *"
	DefaultQueryDefaultLimit    = 50
	DefaultQueryMaxLimit        = 1000

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingRedact        = true
	DefaultMetricsEnabled       = true
	DefaultPrometheusPath       = "/metrics"
	DefaultMetricsNamespace     = "apigate"
	DefaultMetricsSubsystem     = "gateway"
	DefaultTracingSampler       = "ratio"
	DefaultTracingSamplingRate  = 0.1
	DefaultTracingServiceName   = "apigate"
	DefaultTracingInsecure      = true
	DefaultTracingExportTimeout = 10 * time.Second

	// Rate limit defaults
	DefaultRateLimitRequests = 600
	DefaultRateLimitWindow   = time.Minute

	// Catalog git defaults
	DefaultCatalogGitBranch   = "main"
	DefaultCatalogGitFile     = "catalog.yaml"
	DefaultCatalogGitPoll     = time.Minute
	DefaultCatalogGitTimeout  = 30 * time.Second
	DefaultCatalogGitAuthType = "none"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "APIGATE_SECRET_"
	DefaultSecretsCacheTTL  = 5 * time.Minute
)

// DefaultDurationBuckets are histogram buckets for HTTP API latencies.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Default returns a Config with every default applied. Boolean defaults are
// set here so that an explicit false in a config file survives loading.
func Default() *Config {
	cfg := &Config{}
	cfg.Logs.Enabled = DefaultLogsEnabled
	cfg.Logs.Storage.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Logging.RedactSecrets = DefaultLoggingRedact
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any non-boolean fields that have zero
// values. It is idempotent.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReload
	}

	// Gateway defaults
	if cfg.Gateway.AppOrigin == "" {
		cfg.Gateway.AppOrigin = DefaultAppOrigin
	}
	if cfg.Gateway.DispatchTimeout == 0 {
		cfg.Gateway.DispatchTimeout = DefaultDispatchTimeout
	}
	if cfg.Gateway.MaxIdleConns == 0 {
		cfg.Gateway.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Gateway.MaxIdleConnsPerHost == 0 {
		cfg.Gateway.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.Gateway.IdleConnTimeout == 0 {
		cfg.Gateway.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if cfg.Gateway.ServerSelection == "" {
		cfg.Gateway.ServerSelection = DefaultServerSelection
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.Memory.Capacity == 0 {
		cfg.Cache.Memory.Capacity = DefaultCacheCapacity
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// Catalog defaults
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = DefaultCatalogPath
	}

	applyLogsDefaults(&cfg.Logs)

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingExportTimeout
	}

	// Rate limit defaults
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = DefaultRateLimitRequests
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}

	// Catalog git defaults
	if cfg.Catalog.Git.Repository != "" {
		if cfg.Catalog.Git.Branch == "" {
			cfg.Catalog.Git.Branch = DefaultCatalogGitBranch
		}
		if cfg.Catalog.Git.File == "" {
			cfg.Catalog.Git.File = DefaultCatalogGitFile
		}
		if cfg.Catalog.Git.PollInterval == 0 {
			cfg.Catalog.Git.PollInterval = DefaultCatalogGitPoll
		}
		if cfg.Catalog.Git.Timeout == 0 {
			cfg.Catalog.Git.Timeout = DefaultCatalogGitTimeout
		}
		if cfg.Catalog.Git.Auth.Type == "" {
			cfg.Catalog.Git.Auth.Type = DefaultCatalogGitAuthType
		}
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}
}

func applyLogsDefaults(logs *LogsConfig) {
	if logs.Mode == "" {
		logs.Mode = DefaultLogsMode
	}
	if logs.Storage.Backend == "" {
		logs.Storage.Backend = DefaultLogsStorageBackend
	}

	sqlite := &logs.Storage.SQLite
	if sqlite.Path == "" {
		sqlite.Path = DefaultSQLitePath
	}
	if sqlite.Driver == "" {
		sqlite.Driver = DefaultSQLiteDriver
	}
	if sqlite.MaxOpenConns == 0 {
		sqlite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if sqlite.MaxIdleConns == 0 {
		sqlite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if sqlite.BusyTimeout == 0 {
		sqlite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	if logs.Recorder.Workers == 0 {
		logs.Recorder.Workers = DefaultRecorderWorkers
	}
	if logs.Recorder.QueueSize == 0 {
		logs.Recorder.QueueSize = DefaultRecorderQueueSize
	}
	if logs.Recorder.WriteTimeout == 0 {
		logs.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}
	if logs.Recorder.GracePeriod == 0 {
		logs.Recorder.GracePeriod = DefaultRecorderGracePeriod
	}

	if logs.Retention.Days == 0 {
		logs.Retention.Days = DefaultRetentionDays
	}
	if logs.Retention.PruneSchedule == "" {
		logs.Retention.PruneSchedule = DefaultRetentionSchedule
	}

	if logs.Query.DefaultLimit == 0 {
		logs.Query.DefaultLimit = DefaultQueryDefaultLimit
	}
	if logs.Query.MaxLimit == 0 {
		logs.Query.MaxLimit = DefaultQueryMaxLimit
	}
}
