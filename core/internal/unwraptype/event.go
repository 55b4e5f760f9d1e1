package unwraptype

import "time"

// Event reports the outcome of a single unwrap.
type Event struct {
	// Kind identifies what happened.
	Kind EventKind

	// Fingerprint is the cache key of the mesh.
	Fingerprint Fingerprint

	// Duration is the time spent in the generator. Zero on cache hits.
	Duration time.Duration

	// BlobSize is the size of the blob returned to the caller.
	BlobSize int
}

// EventKind identifies the outcome of an unwrap.
type EventKind uint8

// Unwrap outcomes.
const (
	// EventHit indicates the result was served from the cache blob.
	EventHit EventKind = iota

	// EventMiss indicates the result was generated and appended.
	EventMiss

	// EventEmptyArea indicates the generator found no unwrappable area.
	EventEmptyArea

	// EventCorrupt indicates the supplied blob failed to decode.
	EventCorrupt
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventHit:
		return "hit"
	case EventMiss:
		return "miss"
	case EventEmptyArea:
		return "empty area"
	case EventCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// EventFunc receives unwrap events.
// Implementations must be safe for concurrent calls.
type EventFunc func(Event)
