package unwraptype

import (
	"fmt"
	"math"
)

// Mesh is the geometry input to an unwrap.
//
// Positions and Normals hold three float32 components per vertex, flattened.
// Indices holds three vertex indices per triangle. The mesh is owned by the
// caller and is never retained.
type Mesh struct {
	// Positions is x,y,z per vertex.
	Positions []float32

	// Normals is nx,ny,nz per vertex. Must have the same length as Positions.
	Normals []float32

	// Indices lists triangle corners as positions into the vertex arrays.
	Indices []uint32

	// TexelSize is the world-space size of one lightmap texel.
	TexelSize float32
}

// VertexCount returns the number of vertices.
func (m Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// TriangleCount returns the number of triangles.
func (m Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Validate reports ErrInvalidMesh if the arrays are inconsistent, an index is
// out of range, or the texel size cannot produce a texel density.
func (m Mesh) Validate() error {
	if len(m.Positions)%3 != 0 {
		return fmt.Errorf("%w: %d position components is not a multiple of 3", ErrInvalidMesh, len(m.Positions))
	}
	if len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("%w: %d normal components for %d position components",
			ErrInvalidMesh, len(m.Normals), len(m.Positions))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a multiple of 3", ErrInvalidMesh, len(m.Indices))
	}
	ts := float64(m.TexelSize)
	if math.IsNaN(ts) || math.IsInf(ts, 0) || ts <= 0 {
		return fmt.Errorf("%w: texel size %v must be positive and finite", ErrInvalidMesh, m.TexelSize)
	}
	n := uint64(m.VertexCount())
	for i, idx := range m.Indices {
		if uint64(idx) >= n {
			return fmt.Errorf("%w: index %d at position %d out of range for %d vertices",
				ErrInvalidMesh, idx, i, n)
		}
	}
	return nil
}

// Fingerprint returns the cache key for the mesh.
func (m Mesh) Fingerprint() Fingerprint {
	return ComputeFingerprint(m.TexelSize, m.Positions, m.Normals, m.Indices)
}
