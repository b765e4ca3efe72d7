package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the request log tables. created_at holds Unix
// nanoseconds so both SQLite drivers scan it the same way.
const Schema = `
CREATE TABLE IF NOT EXISTS request_logs (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    client_id TEXT,
    operation_id TEXT,

    method TEXT NOT NULL,
    status_code INTEGER NOT NULL,
    base_url TEXT NOT NULL,
    path TEXT NOT NULL,
    search TEXT,

    request_headers TEXT,
    request_body TEXT,
    response_headers TEXT,
    response_body TEXT,

    is_cache_hit INTEGER NOT NULL DEFAULT 0,
    response_size INTEGER NOT NULL DEFAULT 0,
    request_duration REAL NOT NULL DEFAULT 0,
    gateway_duration REAL NOT NULL DEFAULT 0,

    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_request_logs_project_created ON request_logs(project_id, created_at);
CREATE INDEX IF NOT EXISTS idx_request_logs_created ON request_logs(created_at);
CREATE INDEX IF NOT EXISTS idx_request_logs_status ON request_logs(status_code);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the newest schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const selectColumns = `id, project_id, client_id, operation_id,
	method, status_code, base_url, path, search,
	request_headers, request_body, response_headers, response_body,
	is_cache_hit, response_size, request_duration, gateway_duration,
	created_at`
