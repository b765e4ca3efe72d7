package storage

import (
	"fmt"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/requestlog"
)

// New opens the configured storage backend.
func New(cfg config.LogStorageConfig) (requestlog.Storage, error) {
	switch cfg.Backend {
	case "sqlite", "":
		return NewSQLiteStorage(cfg.SQLite)
	case "memory":
		return NewMemoryStorage(cfg.MemoryMaxRecords), nil
	default:
		return nil, fmt.Errorf("unknown log storage backend %q", cfg.Backend)
	}
}

// NewSink builds the recorder's sink. Remote mode posts to the logs
// service; embedded mode writes to storage, which must then be non-nil.
func NewSink(cfg config.LogsConfig, storage requestlog.Storage) (requestlog.Sink, error) {
	switch cfg.Mode {
	case "remote":
		return NewHTTPSink(cfg.Endpoint, cfg.Token, cfg.Recorder.WriteTimeout, nil), nil
	case "embedded", "":
		if storage == nil {
			return nil, fmt.Errorf("embedded log mode requires storage")
		}
		return requestlog.StorageSink{Storage: storage}, nil
	default:
		return nil, fmt.Errorf("unknown logs mode %q", cfg.Mode)
	}
}
