// Package config provides configuration management for apigate.
//
// Configuration is read from a YAML file decoded over Default(), then
// overridden by APIGATE_* environment variables, then validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("apigate.yaml")
//
// A .env file in the working directory is loaded before overrides are
// applied. Variables already present in the environment win.
//
// # Environment Variable Overrides
//
//   - APIGATE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - APIGATE_CACHE_BACKEND overrides cache.backend
//   - APIGATE_LOGS_TOKEN overrides logs.token
//   - APIGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Singleton
//
// Initialize stores the loaded configuration process-wide; GetConfig and
// MustGetConfig read it back. Tests should build a Config explicitly.
package config
