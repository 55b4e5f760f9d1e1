package unwraptype

import "errors"

// Sentinel errors for unwrap operations.
var (
	// ErrEmptyArea is returned when the packer produces an atlas with zero
	// width or height. The mesh has no unwrappable surface; it is never cached.
	ErrEmptyArea = errors.New("unwrap: mesh has no unwrappable area")

	// ErrCorruptCache is returned when a cache blob fails structural decoding.
	ErrCorruptCache = errors.New("unwrap: corrupt cache blob")

	// ErrInvalidMesh is returned when mesh arrays are inconsistent or an index
	// is out of range.
	ErrInvalidMesh = errors.New("unwrap: invalid mesh")

	// ErrGenerate is returned when the atlas generator fails for a reason
	// other than an empty area.
	ErrGenerate = errors.New("unwrap: atlas generation failed")

	// ErrUnsupportedVersion is returned when a persisted blob envelope carries
	// a format version this build cannot read.
	ErrUnsupportedVersion = errors.New("unwrap: unsupported cache format version")

	// ErrDecompression is returned when a persisted blob fails to decompress.
	ErrDecompression = errors.New("unwrap: decompression failed")
)
