// Package unwrap caches lightmap UV unwraps in a flat, content-addressed blob.
//
// Generating a non-overlapping UV atlas for a mesh is expensive and
// deterministic, so results are keyed by an MD5 fingerprint of the mesh
// arrays and stored in a single binary blob the caller keeps alongside the
// mesh. [Service.Unwrap] hashes the mesh, scans the blob, and either decodes
// the stored record or runs the [Generator] and returns a grown copy of the
// blob.
//
// The blob is a little-endian uint32 entry count followed by variable-length
// records. It is passed by value: the service never retains or modifies the
// caller's slice. Callers sharing one blob between goroutines must serialize
// access themselves, or use [ResourceCache] with a [cache.Store].
//
// Record lookup is a linear scan. Records are never rewritten or removed.
package unwrap
