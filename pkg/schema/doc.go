// Package schema defines the read-only API descriptors the gateway works
// from: projects and their HTTP clients, API schemas with servers and
// security schemes, operations with their parameters, mappings and response
// bodies, and the stored client authentications.
//
// Values of these types are loaded once by the catalog and shared across
// concurrent calls; the dispatch pipeline never mutates them.
package schema
