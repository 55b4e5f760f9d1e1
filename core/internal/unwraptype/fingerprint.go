package unwraptype

import (
	"crypto/md5" //nolint:gosec // cache key compatibility, not a security boundary
	"encoding/binary"
	"encoding/hex"
	"math"
)

// FingerprintSize is the width of a Fingerprint in bytes.
const FingerprintSize = md5.Size

// Fingerprint is the content hash that keys a cache record.
type Fingerprint [FingerprintSize]byte

// String returns the lowercase hex encoding of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// hashChunk bounds the scratch buffer used to stream arrays into the digest.
const hashChunk = 1024

// ComputeFingerprint hashes the inputs that determine an unwrap result.
//
// Bytes are fed in a fixed order and width: texel size, indices, positions,
// normals, each element as 4 little-endian bytes. Persisted blobs depend on
// this layout; changing it requires a new envelope version.
func ComputeFingerprint(texelSize float32, positions, normals []float32, indices []uint32) Fingerprint {
	h := md5.New() //nolint:gosec // see import
	var buf [hashChunk * 4]byte

	binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(texelSize))
	_, _ = h.Write(buf[:4]) //nolint:errcheck // hash writes never fail

	for len(indices) > 0 {
		n := min(len(indices), hashChunk)
		for i, v := range indices[:n] {
			binary.LittleEndian.PutUint32(buf[i*4:], v)
		}
		_, _ = h.Write(buf[:n*4]) //nolint:errcheck // hash writes never fail
		indices = indices[n:]
	}
	for _, floats := range [][]float32{positions, normals} {
		for len(floats) > 0 {
			n := min(len(floats), hashChunk)
			for i, v := range floats[:n] {
				binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
			}
			_, _ = h.Write(buf[:n*4]) //nolint:errcheck // hash writes never fail
			floats = floats[n:]
		}
	}

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}
