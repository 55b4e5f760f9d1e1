package unwrap

import (
	"github.com/meigma/unwrap/core/internal/record"
	"github.com/meigma/unwrap/core/internal/unwraptype"
)

// Re-export types from internal packages for the public API.
type (
	// Mesh is the geometry input to an unwrap.
	Mesh = unwraptype.Mesh

	// Result is the output of an unwrap.
	Result = unwraptype.Result

	// Entry is a cache record.
	Entry = unwraptype.Entry

	// Fingerprint is the content hash that keys a cache record.
	Fingerprint = unwraptype.Fingerprint

	// View is a read-only record aliasing blob bytes.
	View = record.View

	// Event reports the outcome of a single unwrap.
	Event = unwraptype.Event

	// EventKind identifies the outcome of an unwrap.
	EventKind = unwraptype.EventKind

	// EventFunc receives unwrap events.
	EventFunc = unwraptype.EventFunc
)

// Re-export event kinds.
const (
	EventHit       = unwraptype.EventHit
	EventMiss      = unwraptype.EventMiss
	EventEmptyArea = unwraptype.EventEmptyArea
	EventCorrupt   = unwraptype.EventCorrupt
)

// FingerprintSize is the width of a Fingerprint in bytes.
const FingerprintSize = unwraptype.FingerprintSize

// BlobHeaderSize is the size of the entry count that starts a non-empty blob.
const BlobHeaderSize = record.HeaderSize

// Sentinel errors re-exported from internal/unwraptype.
var (
	// ErrEmptyArea is returned when the mesh has no unwrappable area.
	ErrEmptyArea = unwraptype.ErrEmptyArea

	// ErrCorruptCache is returned when a cache blob fails structural decoding.
	ErrCorruptCache = unwraptype.ErrCorruptCache

	// ErrInvalidMesh is returned when mesh arrays are inconsistent.
	ErrInvalidMesh = unwraptype.ErrInvalidMesh

	// ErrGenerate is returned when the generator fails.
	ErrGenerate = unwraptype.ErrGenerate

	// ErrUnsupportedVersion is returned for unknown envelope versions.
	ErrUnsupportedVersion = unwraptype.ErrUnsupportedVersion

	// ErrDecompression is returned when a persisted blob fails to decompress.
	ErrDecompression = unwraptype.ErrDecompression
)

// Codec functions re-exported from internal/record.
var (
	// ComputeFingerprint hashes texel size, indices, positions and normals.
	ComputeFingerprint = unwraptype.ComputeFingerprint

	// Lookup scans a blob for a fingerprint and returns an aliasing view.
	Lookup = record.Lookup

	// Append returns a new blob with an entry added at the end.
	Append = record.Append

	// Validate walks a blob and returns its entry count.
	Validate = record.Validate

	// Entries iterates the records of a blob.
	Entries = record.Entries

	// EncodeEntry returns the record encoding of an entry.
	EncodeEntry = record.Encode

	// DecodeEntry parses a single record.
	DecodeEntry = record.Decode

	// RecordLen returns the encoded size of a record with the given counts.
	RecordLen = record.Len
)
