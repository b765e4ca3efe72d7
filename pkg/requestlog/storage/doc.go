// Package storage provides request log backends and the remote logs
// service client.
//
// SQLiteStorage works with either the cgo driver (mattn/go-sqlite3,
// driver name "sqlite3") or the pure Go driver (modernc.org/sqlite, driver
// name "sqlite"), chosen by logs.storage.sqlite.driver. MemoryStorage is
// for tests and single-process development. HTTPSink posts logs to a
// remote logs service.
package storage
