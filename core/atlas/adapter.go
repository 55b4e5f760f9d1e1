package atlas

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/meigma/unwrap/core/internal/unwraptype"
)

// Adapter runs a Packer with a fixed policy and converts its output into a
// Result.
type Adapter struct {
	packer Packer
	opts   PackOptions
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for generation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithPackOptions overrides the packing policy. TexelsPerUnit is ignored; it
// is always derived from the mesh texel size.
func WithPackOptions(opts PackOptions) Option {
	return func(a *Adapter) {
		a.opts = opts
	}
}

// NewAdapter returns an Adapter that delegates to packer.
func NewAdapter(packer Packer, opts ...Option) (*Adapter, error) {
	if packer == nil {
		return nil, errors.New("atlas: packer is nil")
	}
	a := &Adapter{
		packer: packer,
		opts:   DefaultPackOptions(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Adapter) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Options returns the packing policy applied to every mesh.
func (a *Adapter) Options() PackOptions {
	return a.opts
}

// Generate computes a fresh atlas for mesh.
//
// It returns ErrEmptyArea when the packer produces a zero-width or
// zero-height atlas, and ErrGenerate when the packer fails.
func (a *Adapter) Generate(mesh unwraptype.Mesh) (unwraptype.Result, error) {
	if err := mesh.Validate(); err != nil {
		return unwraptype.Result{}, err
	}

	opts := a.opts
	opts.TexelsPerUnit = 1 / mesh.TexelSize

	at, err := a.packer.Pack(MeshDecl{
		Positions: mesh.Positions,
		Normals:   mesh.Normals,
		Indices:   mesh.Indices,
	}, opts)
	defer at.Release()
	if err != nil {
		return unwraptype.Result{}, fmt.Errorf("%w: %w", unwraptype.ErrGenerate, err)
	}
	if at == nil {
		return unwraptype.Result{}, fmt.Errorf("%w: packer returned no atlas", unwraptype.ErrGenerate)
	}
	if at.Width == 0 || at.Height == 0 {
		return unwraptype.Result{}, fmt.Errorf("%w: atlas is %dx%d", unwraptype.ErrEmptyArea, at.Width, at.Height)
	}

	w, h := float32(at.Width), float32(at.Height)
	res := unwraptype.Result{
		Width:    at.Width,
		Height:   at.Height,
		Vertices: make([]uint32, len(at.Vertices)),
		UVs:      make([]float32, 2*len(at.Vertices)),
		Indices:  make([]uint32, len(at.Indices)),
	}
	var maxU, maxV float32
	for i, v := range at.Vertices {
		res.Vertices[i] = v.XRef
		res.UVs[2*i] = v.U / w
		res.UVs[2*i+1] = v.V / h
		maxU = max(maxU, v.U)
		maxV = max(maxV, v.V)
	}
	copy(res.Indices, at.Indices)

	a.log().Debug("atlas generated",
		"width", at.Width,
		"height", at.Height,
		"max_u", maxU,
		"max_v", maxV,
		"vertices", len(res.Vertices),
		"indices", len(res.Indices),
	)
	return res, nil
}
