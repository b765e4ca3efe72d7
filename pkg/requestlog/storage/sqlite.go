package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/requestlog"
)

// SQLite driver names.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// SQLiteStorage implements requestlog.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and creates the schema.
func NewSQLiteStorage(cfg config.SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverCGO
	}
	if cfg.Driver != DriverCGO && cfg.Driver != DriverPureGo {
		return nil, requestlog.NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", cfg.Driver))
	}

	logger := slog.Default().With("component", "requestlog.storage.sqlite")

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, requestlog.NewStorageError("sqlite", "open", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return requestlog.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if s.config.BusyTimeout > 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
			return requestlog.NewStorageError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return requestlog.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return requestlog.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return requestlog.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return requestlog.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store implements requestlog.Storage.
func (s *SQLiteStorage) Store(ctx context.Context, log *requestlog.RequestLog) error {
	requestHeaders, _ := json.Marshal(log.RequestHeaders)
	responseHeaders, _ := json.Marshal(log.ResponseHeaders)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO request_logs (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.ProjectID, log.ClientID, log.OperationID,
		log.Method, log.StatusCode, log.BaseURL, log.Path, log.Search,
		string(requestHeaders), nullableJSON(log.RequestBody), string(responseHeaders), nullableJSON(log.ResponseBody),
		log.IsCacheHit, log.ResponseSize, log.RequestDuration, log.GatewayDuration,
		log.CreatedAt.UnixNano(),
	)
	if err != nil {
		return requestlog.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get implements requestlog.Storage.
func (s *SQLiteStorage) Get(ctx context.Context, projectID, id string) (*requestlog.RequestLog, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM request_logs WHERE project_id = ? AND id = ?", projectID, id)
	if err != nil {
		return nil, requestlog.NewStorageError("sqlite", "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, requestlog.NewStorageError("sqlite", "get", err)
		}
		return nil, requestlog.NewNotFoundError(projectID, id)
	}

	log, err := scanRow(rows)
	if err != nil {
		return nil, requestlog.NewStorageError("sqlite", "scan", err)
	}
	return log, nil
}

// Query implements requestlog.Storage.
func (s *SQLiteStorage) Query(ctx context.Context, query *requestlog.Query) ([]*requestlog.RequestLog, error) {
	sqlQuery, args := s.selectQuery(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, requestlog.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	logs := []*requestlog.RequestLog{}
	for rows.Next() {
		log, err := scanRow(rows)
		if err != nil {
			return nil, requestlog.NewStorageError("sqlite", "scan", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, requestlog.NewStorageError("sqlite", "query", err)
	}

	return logs, nil
}

// QueryStream implements requestlog.Storage.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *requestlog.Query) (<-chan *requestlog.RequestLog, <-chan error, error) {
	logsCh := make(chan *requestlog.RequestLog, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.selectQuery(query)

	go func() {
		defer close(logsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- requestlog.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			log, err := scanRow(rows)
			if err != nil {
				errCh <- requestlog.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case logsCh <- log:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- requestlog.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return logsCh, errCh, nil
}

// Count implements requestlog.Storage.
func (s *SQLiteStorage) Count(ctx context.Context, query *requestlog.Query) (int64, error) {
	where, args := buildWhereClause(query)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM request_logs"+where, args...).Scan(&count); err != nil {
		return 0, requestlog.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete implements requestlog.Storage.
func (s *SQLiteStorage) Delete(ctx context.Context, query *requestlog.Query) (int64, error) {
	where, args := buildWhereClause(query)

	result, err := s.db.ExecContext(ctx, "DELETE FROM request_logs"+where, args...)
	if err != nil {
		return 0, requestlog.NewStorageError("sqlite", "delete", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, requestlog.NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements requestlog.Storage.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return requestlog.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

func (s *SQLiteStorage) selectQuery(query *requestlog.Query) (string, []interface{}) {
	where, args := buildWhereClause(query)

	order := "DESC"
	if strings.EqualFold(query.SortOrder, "asc") {
		order = "ASC"
	}

	sqlQuery := "SELECT " + selectColumns + " FROM request_logs" + where +
		fmt.Sprintf(" ORDER BY created_at %s, id %s", order, order)

	limit := -1
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	return sqlQuery, args
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(query *requestlog.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, query.ProjectID)
	}
	if query.ClientID != "" {
		conditions = append(conditions, "client_id = ?")
		args = append(args, query.ClientID)
	}
	if query.StartTime != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.Method != "" {
		conditions = append(conditions, "method = ?")
		args = append(args, strings.ToUpper(query.Method))
	}
	if query.StatusCode != 0 {
		conditions = append(conditions, "status_code = ?")
		args = append(args, query.StatusCode)
	}
	switch query.Status {
	case requestlog.StatusSuccess:
		conditions = append(conditions, "status_code < 400")
	case requestlog.StatusError:
		conditions = append(conditions, "status_code >= 400")
	}
	if query.CacheHit != nil {
		conditions = append(conditions, "is_cache_hit = ?")
		args = append(args, *query.CacheHit)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*requestlog.RequestLog, error) {
	var log requestlog.RequestLog
	var clientID, operationID, search sql.NullString
	var requestHeaders, requestBody, responseHeaders, responseBody sql.NullString
	var createdAt int64

	err := rows.Scan(
		&log.ID, &log.ProjectID, &clientID, &operationID,
		&log.Method, &log.StatusCode, &log.BaseURL, &log.Path, &search,
		&requestHeaders, &requestBody, &responseHeaders, &responseBody,
		&log.IsCacheHit, &log.ResponseSize, &log.RequestDuration, &log.GatewayDuration,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	log.ClientID = clientID.String
	log.OperationID = operationID.String
	log.Search = search.String
	log.CreatedAt = time.Unix(0, createdAt).UTC()

	if requestHeaders.Valid && requestHeaders.String != "" {
		_ = json.Unmarshal([]byte(requestHeaders.String), &log.RequestHeaders)
	}
	if responseHeaders.Valid && responseHeaders.String != "" {
		_ = json.Unmarshal([]byte(responseHeaders.String), &log.ResponseHeaders)
	}
	if requestBody.Valid {
		log.RequestBody = json.RawMessage(requestBody.String)
	}
	if responseBody.Valid {
		log.ResponseBody = json.RawMessage(responseBody.String)
	} else {
		log.ResponseBody = json.RawMessage("null")
	}

	return &log, nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
