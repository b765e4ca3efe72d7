// Package gitsync keeps a catalog file in step with a git repository.
//
// Repository clones the configured branch into a local directory and
// fast-forwards it on Pull. Syncer polls the repository and reloads the
// catalog whenever HEAD moves, so catalog changes ship by merging to the
// tracked branch.
package gitsync
