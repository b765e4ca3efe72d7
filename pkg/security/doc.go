// Package security groups the gateway's transport and credential hygiene
// packages.
//
// Subpackages:
//   - tls: server TLS configuration with certificate hot reload
//   - secrets: ${secret:name} resolution for stored client credentials
package security
