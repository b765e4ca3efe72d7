// Package logsapi serves stored request logs over HTTP.
//
// Routes, relative to where the router is mounted:
//
//	POST /{projectId}          ingest one RequestLog (bearer token when configured)
//	GET  /{projectId}          list logs with filters and pagination
//	GET  /{projectId}/export   stream logs as JSON or CSV
//	GET  /{projectId}/{id}     fetch a single log
//
// Remote-mode gateways deliver logs to POST /logs/{projectId} through
// storage.HTTPSink, so a gateway in embedded mode can act as the logs
// service for others.
package logsapi
