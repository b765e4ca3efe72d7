// Package recorder captures a RequestLog for each completed gateway call
// and delivers it without delaying the caller's response.
//
// Capture skips calls without a project key, calls whose params payload is
// missing or not JSON, and origin responses that are not JSON. Everything
// else is built into a RequestLog with the Authorization header masked and
// handed to a Scheduler. In production that is a DetachedScheduler: a
// worker pool that drains for a bounded grace period on shutdown. Tests
// use SyncScheduler so the log has been delivered when Capture returns.
package recorder
