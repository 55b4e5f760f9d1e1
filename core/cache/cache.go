package cache

import "github.com/meigma/unwrap/core/internal/envelope"

// Store keeps one cache blob per owner key.
//
// Blobs handed to Put must be structurally valid; implementations validate
// before writing and never mutate the caller's slice. Get returns a blob the
// caller owns.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the blob stored for key.
	// Returns nil, false, nil if nothing is stored. Stored data that fails to
	// decode is reported with an error wrapping ErrCorruptCache,
	// ErrUnsupportedVersion or ErrDecompression.
	Get(key string) ([]byte, bool, error)

	// Put replaces the blob stored for key.
	Put(key string, blob []byte) error

	// Delete removes the blob stored for key.
	// Implementations should treat missing keys as a no-op.
	Delete(key string) error
}

// Compression identifies the payload compression of a persisted blob.
type Compression = envelope.Compression

// Supported compression algorithms.
const (
	CompressionNone = envelope.CompressionNone
	CompressionZstd = envelope.CompressionZstd
)

// Info describes a persisted blob without decoding its payload.
type Info = envelope.Info

// Encode frames blob for persistence.
func Encode(blob []byte, c Compression) ([]byte, error) {
	return envelope.Marshal(blob, envelope.WithCompression(c))
}

// Decode unwraps persisted data and returns the validated blob.
// maxSize limits the decoded size; 0 disables the limit.
func Decode(data []byte, maxSize uint64) ([]byte, error) {
	return envelope.Unmarshal(data, envelope.WithMaxSize(maxSize))
}

// Inspect returns the header of persisted data.
func Inspect(data []byte) (Info, error) {
	return envelope.Inspect(data)
}
