package atlas

// Vertex is an output vertex of a packed atlas.
type Vertex struct {
	// XRef is the index of the source vertex this vertex was split from.
	XRef uint32

	// U and V are texel coordinates within the atlas.
	U, V float32
}

// MeshDecl is the packer's view of the input mesh.
type MeshDecl struct {
	Positions []float32
	Normals   []float32
	Indices   []uint32
}

// PackOptions controls chart packing.
type PackOptions struct {
	// MaxChartSize caps chart width and height in texels. Zero disables the cap.
	MaxChartSize uint32

	// BlockAlign aligns charts and the final atlas size to 4x4 texel blocks.
	BlockAlign bool

	// Padding is the number of texels left empty around every chart.
	Padding uint32

	// TexelsPerUnit converts world units to texels.
	TexelsPerUnit float32
}

// Default packing policy. TexelsPerUnit is derived per mesh from its texel size.
const (
	DefaultMaxChartSize = 4096
	DefaultPadding      = 1
)

// DefaultPackOptions returns the fixed packing policy used for lightmaps.
func DefaultPackOptions() PackOptions {
	return PackOptions{
		MaxChartSize: DefaultMaxChartSize,
		BlockAlign:   true,
		Padding:      DefaultPadding,
	}
}

// Atlas is the output of a packer.
//
// Its buffers may be borrowed from the packer; callers must call Release once
// they are done with it and must not use the slices afterwards.
type Atlas struct {
	Width    uint32
	Height   uint32
	Vertices []Vertex
	Indices  []uint32

	release func()
}

// NewAtlas returns an atlas whose Release calls release.
func NewAtlas(width, height uint32, vertices []Vertex, indices []uint32, release func()) *Atlas {
	return &Atlas{
		Width:    width,
		Height:   height,
		Vertices: vertices,
		Indices:  indices,
		release:  release,
	}
}

// Release returns the atlas buffers to the packer. It is safe to call more
// than once.
func (a *Atlas) Release() {
	if a == nil {
		return
	}
	if a.release != nil {
		a.release()
		a.release = nil
	}
	a.Vertices = nil
	a.Indices = nil
}

// Packer decomposes a mesh into charts and packs them into an atlas.
// Implementations must be deterministic.
type Packer interface {
	Pack(mesh MeshDecl, opts PackOptions) (*Atlas, error)
}
