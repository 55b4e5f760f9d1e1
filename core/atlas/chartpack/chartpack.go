// Package chartpack is a small deterministic atlas packer.
//
// Every non-degenerate triangle becomes its own chart, projected onto the
// triangle's plane and scaled to texels. Charts are shelf-packed into a
// roughly square atlas, tallest first. Zero-area triangles are dropped, so a
// mesh with no area packs into a 0x0 atlas.
package chartpack

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/meigma/unwrap/core/atlas"
)

const (
	blockSize = 4

	// degenerateArea is the smallest doubled triangle area that forms a chart.
	degenerateArea = 1e-12
)

var _ atlas.Packer = (*Packer)(nil)

// Packer implements atlas.Packer. The zero value is ready to use and a Packer
// is safe for concurrent use.
type Packer struct {
	pool sync.Pool
}

// New returns a Packer.
func New() *Packer {
	return &Packer{}
}

type chart struct {
	corners [3]uint32
	uv      [3][2]float64
	w, h    uint32
	cw, ch  uint32
	x, y    uint32
}

// scratch holds per-call buffers. The output slices are lent to the Atlas and
// come back to the pool on Release.
type scratch struct {
	charts   []chart
	order    []int
	vertices []atlas.Vertex
	indices  []uint32
}

func (p *Packer) get() *scratch {
	if s, ok := p.pool.Get().(*scratch); ok {
		return s
	}
	return new(scratch)
}

func (p *Packer) put(s *scratch) {
	s.charts = s.charts[:0]
	s.order = s.order[:0]
	s.vertices = s.vertices[:0]
	s.indices = s.indices[:0]
	p.pool.Put(s)
}

// Pack implements atlas.Packer.
func (p *Packer) Pack(mesh atlas.MeshDecl, opts atlas.PackOptions) (*atlas.Atlas, error) {
	tpu := float64(opts.TexelsPerUnit)
	if math.IsNaN(tpu) || math.IsInf(tpu, 0) || tpu <= 0 {
		return nil, fmt.Errorf("chartpack: texels per unit %v must be positive and finite", opts.TexelsPerUnit)
	}
	if len(mesh.Positions)%3 != 0 || len(mesh.Indices)%3 != 0 {
		return nil, errors.New("chartpack: position and index arrays must hold triples")
	}

	s := p.get()
	if err := s.buildCharts(mesh, opts, tpu); err != nil {
		p.put(s)
		return nil, err
	}
	width, height := s.pack(opts)
	s.emit()

	return atlas.NewAtlas(width, height, s.vertices, s.indices, func() { p.put(s) }), nil
}

func (s *scratch) buildCharts(mesh atlas.MeshDecl, opts atlas.PackOptions, tpu float64) error {
	nverts := uint32(len(mesh.Positions) / 3) //nolint:gosec // slice lengths fit
	pos := func(i uint32) vec3 {
		return vec3{
			float64(mesh.Positions[3*i]),
			float64(mesh.Positions[3*i+1]),
			float64(mesh.Positions[3*i+2]),
		}
	}

	for t := 0; t+2 < len(mesh.Indices); t += 3 {
		var c chart
		copy(c.corners[:], mesh.Indices[t:t+3])
		for _, idx := range c.corners {
			if idx >= nverts {
				return fmt.Errorf("chartpack: index %d out of range for %d vertices", idx, nverts)
			}
		}

		p0, p1, p2 := pos(c.corners[0]), pos(c.corners[1]), pos(c.corners[2])
		e1, e2 := p1.sub(p0), p2.sub(p0)
		n := e1.cross(e2)
		if n.length() <= degenerateArea {
			continue
		}
		ax := e1.scale(1 / e1.length())
		ay := n.scale(1 / n.length()).cross(ax)

		c.uv[1] = [2]float64{e1.length(), 0}
		c.uv[2] = [2]float64{e2.dot(ax), e2.dot(ay)}
		minU := min(0, c.uv[2][0])
		minV := min(0, c.uv[2][1])
		var maxU, maxV float64
		for k := range c.uv {
			c.uv[k][0] = (c.uv[k][0] - minU) * tpu
			c.uv[k][1] = (c.uv[k][1] - minV) * tpu
			maxU = max(maxU, c.uv[k][0])
			maxV = max(maxV, c.uv[k][1])
		}

		if limit := float64(opts.MaxChartSize); limit > 0 && max(maxU, maxV) > limit {
			f := limit / max(maxU, maxV)
			for k := range c.uv {
				c.uv[k][0] *= f
				c.uv[k][1] *= f
			}
			maxU *= f
			maxV *= f
		}
		c.w = texels(maxU)
		c.h = texels(maxV)
		if opts.MaxChartSize > 0 {
			c.w = min(c.w, opts.MaxChartSize)
			c.h = min(c.h, opts.MaxChartSize)
		}
		s.charts = append(s.charts, c)
	}
	return nil
}

// pack assigns chart positions and returns the atlas size.
func (s *scratch) pack(opts atlas.PackOptions) (width, height uint32) {
	if len(s.charts) == 0 {
		return 0, 0
	}
	align := uint32(1)
	if opts.BlockAlign {
		align = blockSize
	}

	var area uint64
	var widest uint32
	for i := range s.charts {
		c := &s.charts[i]
		c.cw = alignUp(c.w+2*opts.Padding, align)
		c.ch = alignUp(c.h+2*opts.Padding, align)
		area += uint64(c.cw) * uint64(c.ch)
		widest = max(widest, c.cw)
		s.order = append(s.order, i)
	}
	slices.SortStableFunc(s.order, func(a, b int) int {
		return cmp.Compare(s.charts[b].ch, s.charts[a].ch)
	})

	width = alignUp(max(widest, uint32(math.Ceil(math.Sqrt(float64(area))))), align)
	var x, y, shelf uint32
	for _, i := range s.order {
		c := &s.charts[i]
		if x+c.cw > width {
			y += shelf
			x, shelf = 0, 0
		}
		c.x = x + opts.Padding
		c.y = y + opts.Padding
		x += c.cw
		shelf = max(shelf, c.ch)
	}
	height = alignUp(y+shelf, align)
	return width, height
}

// emit writes output vertices and indices in triangle order.
func (s *scratch) emit() {
	for i := range s.charts {
		c := &s.charts[i]
		base := uint32(len(s.vertices)) //nolint:gosec // bounded by input length
		for k := range c.corners {
			s.vertices = append(s.vertices, atlas.Vertex{
				XRef: c.corners[k],
				U:    float32(float64(c.x) + c.uv[k][0]),
				V:    float32(float64(c.y) + c.uv[k][1]),
			})
			s.indices = append(s.indices, base+uint32(k)) //nolint:gosec // k < 3
		}
	}
}

// texels converts a chart extent to whole texels, saturating at the uint32
// range.
func texels(extent float64) uint32 {
	if extent >= math.MaxUint32 {
		return math.MaxUint32
	}
	return max(1, uint32(math.Ceil(extent)))
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) / align * align
}
