package unwraptype

import "slices"

// Result is the output of an unwrap, whether computed or read from cache.
type Result struct {
	// Width and Height are the atlas size hint in texels.
	Width  uint32
	Height uint32

	// Vertices maps each output vertex to the source vertex it was split from.
	Vertices []uint32

	// UVs holds u,v per output vertex, normalized to [0,1].
	UVs []float32

	// Indices lists output triangles as positions into Vertices.
	Indices []uint32
}

// VertexCount returns the number of output vertices.
func (r Result) VertexCount() int {
	return len(r.Vertices)
}

// UV returns the texture coordinate of output vertex i.
func (r Result) UV(i int) (u, v float32) {
	return r.UVs[i*2], r.UVs[i*2+1]
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	return Result{
		Width:    r.Width,
		Height:   r.Height,
		Vertices: slices.Clone(r.Vertices),
		UVs:      slices.Clone(r.UVs),
		Indices:  slices.Clone(r.Indices),
	}
}

// Entry is a cache record: a result keyed by the fingerprint of its mesh.
// Entries are immutable once written.
type Entry struct {
	Fingerprint Fingerprint
	Result      Result
}
