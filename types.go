package unwrap

import (
	unwrapcore "github.com/meigma/unwrap/core"
	"github.com/meigma/unwrap/core/cache"
)

// --- Re-exports from core ---

// Mesh is the geometry input to an unwrap.
type Mesh = unwrapcore.Mesh

// Result is the output of an unwrap.
type Result = unwrapcore.Result

// Fingerprint is the content hash that keys a cache record.
type Fingerprint = unwrapcore.Fingerprint

// Generator computes a fresh unwrap for a mesh.
type Generator = unwrapcore.Generator

// Job is one mesh and the cache blob that belongs to it.
type Job = unwrapcore.Job

// JobResult is the outcome of a Job.
type JobResult = unwrapcore.JobResult

// Event reports the outcome of a single unwrap.
type Event = unwrapcore.Event

// EventFunc receives unwrap events.
type EventFunc = unwrapcore.EventFunc

// --- Re-exports from core/cache ---

// Store keeps one cache blob per owner key.
type Store = cache.Store

// Compression identifies the payload compression of a persisted blob.
type Compression = cache.Compression

// Compression constants.
const (
	CompressionNone = cache.CompressionNone
	CompressionZstd = cache.CompressionZstd
)

// EventKind identifies the outcome of an unwrap.
type EventKind = unwrapcore.EventKind

// Event kinds.
const (
	EventHit       = unwrapcore.EventHit
	EventMiss      = unwrapcore.EventMiss
	EventEmptyArea = unwrapcore.EventEmptyArea
	EventCorrupt   = unwrapcore.EventCorrupt
)
