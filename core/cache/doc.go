// Package cache persists unwrap cache blobs for long-lived owners.
//
// A blob belongs to whichever resource it describes (typically one mesh
// asset), so stores are keyed by an owner key rather than by fingerprint.
// Stores frame blobs with a versioned, checksummed envelope when they leave
// the process.
package cache
