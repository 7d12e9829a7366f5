//go:build integration

// Package integration holds cross-package lifecycle tests for blobpack:
// batch config in, built container out, through extraction and store
// mutation. They touch only the local filesystem but rebuild and rescan
// whole containers, so they are kept behind a build tag.
//
// Run with: go test -tags=integration ./integration/...
package integration
