package requestlog

import "fmt"

// StorageError is a failure of a storage backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "store", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// NotFoundError reports a missing request log.
type NotFoundError struct {
	ProjectID string
	ID        string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("request log %s not found in project %s", e.ID, e.ProjectID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(projectID, id string) *NotFoundError {
	return &NotFoundError{ProjectID: projectID, ID: id}
}

// QueryError is an invalid query.
type QueryError struct {
	Query *Query
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{
		Query: query,
		Cause: cause,
	}
}

// RecorderError is a failed capture or delivery.
type RecorderError struct {
	LogID string
	Cause error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	if e.LogID != "" {
		return fmt.Sprintf("recorder error [log_id=%s]: %v", e.LogID, e.Cause)
	}
	return fmt.Sprintf("recorder error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(logID string, cause error) *RecorderError {
	return &RecorderError{
		LogID: logID,
		Cause: cause,
	}
}

// IngestError is a non-2xx answer from the remote logs service.
type IngestError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	return fmt.Sprintf("logs service returned %d: %s", e.StatusCode, e.Body)
}

// NewIngestError creates a new IngestError.
func NewIngestError(statusCode int, body string) *IngestError {
	return &IngestError{StatusCode: statusCode, Body: body}
}

// RetentionError is a failed pruning run.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		Cause:         cause,
	}
}

// ExportError is a failed export.
type ExportError struct {
	Format   string
	LogCount int
	Cause    error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, log_count=%d]: %v", e.Format, e.LogCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, logCount int, cause error) *ExportError {
	return &ExportError{
		Format:   format,
		LogCount: logCount,
		Cause:    cause,
	}
}
