package unwrap

import unwrapcore "github.com/meigma/unwrap/core"

// Errors re-exported from core.
var (
	// ErrEmptyArea is returned when the mesh has no unwrappable area.
	ErrEmptyArea = unwrapcore.ErrEmptyArea

	// ErrCorruptCache is returned when a cache blob fails structural decoding.
	ErrCorruptCache = unwrapcore.ErrCorruptCache

	// ErrInvalidMesh is returned when mesh arrays are inconsistent.
	ErrInvalidMesh = unwrapcore.ErrInvalidMesh

	// ErrGenerate is returned when the atlas generator fails.
	ErrGenerate = unwrapcore.ErrGenerate

	// ErrUnsupportedVersion is returned when a persisted blob has an unknown version.
	ErrUnsupportedVersion = unwrapcore.ErrUnsupportedVersion

	// ErrDecompression is returned when a persisted blob fails to decompress.
	ErrDecompression = unwrapcore.ErrDecompression
)
