package record

import (
	"math"

	"github.com/meigma/unwrap/core/internal/unwraptype"
)

// View is a read-only record that aliases blob bytes.
//
// A View is only valid while the blob it was taken from remains alive and
// unmodified. Use Result or Entry to obtain an independent copy.
type View struct {
	data   []byte
	off    int
	vcount int
	icount int
}

// Offset returns the byte offset of the record within its blob.
func (v View) Offset() int {
	return v.off
}

// Len returns the encoded size of the record in bytes.
func (v View) Len() int {
	return len(v.data)
}

// Bytes returns the raw record. The slice aliases the blob.
func (v View) Bytes() []byte {
	return v.data
}

// Fingerprint returns the record's cache key.
func (v View) Fingerprint() unwraptype.Fingerprint {
	var fp unwraptype.Fingerprint
	copy(fp[:], v.data[:fpSize])
	return fp
}

// Width returns the atlas width hint.
func (v View) Width() uint32 {
	return le.Uint32(v.data[offWidth:])
}

// Height returns the atlas height hint.
func (v View) Height() uint32 {
	return le.Uint32(v.data[offHeight:])
}

// VertexCount returns the number of output vertices.
func (v View) VertexCount() int {
	return v.vcount
}

// IndexCount returns the number of output indices.
func (v View) IndexCount() int {
	return v.icount
}

// Vertex returns the source vertex cross-reference of output vertex i.
func (v View) Vertex(i int) uint32 {
	return le.Uint32(v.data[offVertices+4*i:])
}

// UV returns the texture coordinate of output vertex i.
func (v View) UV(i int) (u, w float32) {
	off := v.uvOffset() + 8*i
	return math.Float32frombits(le.Uint32(v.data[off:])), math.Float32frombits(le.Uint32(v.data[off+4:]))
}

// Index returns output index i.
func (v View) Index(i int) uint32 {
	return le.Uint32(v.data[v.indexOffset()+4*i:])
}

func (v View) uvOffset() int {
	return offVertices + 4*v.vcount
}

func (v View) indexOffset() int {
	return offVertices + 12*v.vcount + 4
}

// Result decodes the record into an independent Result.
func (v View) Result() unwraptype.Result {
	r := unwraptype.Result{
		Width:    v.Width(),
		Height:   v.Height(),
		Vertices: make([]uint32, v.vcount),
		UVs:      make([]float32, 2*v.vcount),
		Indices:  make([]uint32, v.icount),
	}
	for i := range r.Vertices {
		r.Vertices[i] = v.Vertex(i)
	}
	uvs := v.data[v.uvOffset():]
	for i := range r.UVs {
		r.UVs[i] = math.Float32frombits(le.Uint32(uvs[4*i:]))
	}
	for i := range r.Indices {
		r.Indices[i] = v.Index(i)
	}
	return r
}

// Entry decodes the record into an independent Entry.
func (v View) Entry() unwraptype.Entry {
	return unwraptype.Entry{Fingerprint: v.Fingerprint(), Result: v.Result()}
}
