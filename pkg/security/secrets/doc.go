// Package secrets resolves ${secret:name} references in stored client
// credentials.
//
// A catalog can keep passwords and tokens out of its YAML by writing
// references instead of values:
//
//	authentications:
//	  - client_id: github
//	    security_scheme_id: bearerAuth
//	    password: ${secret:github-token}
//
// The Manager looks each name up in its providers in order (environment
// variables first, then files in a mounted directory) and caches hits for
// the configured TTL. CredentialStore wraps a credentials.Store so the
// gateway only ever sees resolved values.
package secrets
