// Package routing chooses which declared server an operation is sent to.
//
// Strategies:
//   - first: always the schema's first server
//   - round_robin: rotate through the schema's servers, one counter per schema
//
// Servers with an empty URL are never selected.
package routing
