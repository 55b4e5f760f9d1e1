package unwrap

import (
	"crypto/sha256"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unwrap/core/atlas"
	"github.com/meigma/unwrap/core/atlas/chartpack"
	"github.com/meigma/unwrap/core/testutil"
)

// countingGenerator wraps a Generator and counts Generate calls.
type countingGenerator struct {
	gen   Generator
	calls atomic.Int64
}

func (g *countingGenerator) Generate(mesh Mesh) (Result, error) {
	g.calls.Add(1)
	return g.gen.Generate(mesh)
}

func newCounting(t *testing.T) *countingGenerator {
	t.Helper()
	a, err := atlas.NewAdapter(chartpack.New())
	require.NoError(t, err)
	return &countingGenerator{gen: a}
}

func TestNewNilGenerator(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
}

func TestUnwrapMissThenHit(t *testing.T) {
	t.Parallel()

	gen := newCounting(t)
	var events []Event
	svc, err := New(gen, WithEventFunc(func(e Event) { events = append(events, e) }))
	require.NoError(t, err)

	m := testutil.Triangle()
	res1, blob1, err := svc.Unwrap(m, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen.calls.Load())
	assert.NotZero(t, res1.Width)
	assert.NotZero(t, res1.Height)

	n, err := Validate(blob1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res2, blob2, err := svc.Unwrap(m, blob1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen.calls.Load(), "hit must not invoke the generator")
	assert.Equal(t, res1, res2)
	assert.Equal(t, blob1, blob2)
	assert.Same(t, &blob1[0], &blob2[0], "hit must return the input blob unchanged")

	require.Len(t, events, 2)
	assert.Equal(t, EventMiss, events[0].Kind)
	assert.Equal(t, len(blob1), events[0].BlobSize)
	assert.Equal(t, EventHit, events[1].Kind)
	assert.Equal(t, m.Fingerprint(), events[1].Fingerprint)
}

func TestUnwrapCacheEquivalence(t *testing.T) {
	t.Parallel()

	gen := newCounting(t)
	svc, err := New(gen)
	require.NoError(t, err)

	meshes := []Mesh{testutil.Triangle(), testutil.Quad(0.5), testutil.Quad(0.25)}
	var blob []byte
	fresh := make([]Result, len(meshes))
	for i, m := range meshes {
		var res Result
		res, blob, err = svc.Unwrap(m, blob)
		require.NoError(t, err)
		fresh[i] = res
	}
	assert.Equal(t, int64(len(meshes)), gen.calls.Load())

	for i, m := range meshes {
		res, _, err := svc.Unwrap(m, blob)
		require.NoError(t, err)
		assert.Equal(t, fresh[i], res)

		direct, err := gen.gen.Generate(m)
		require.NoError(t, err)
		assert.Equal(t, direct, res)
	}
	assert.Equal(t, int64(len(meshes)), gen.calls.Load())
}

func TestUnwrapDoesNotMutateInputBlob(t *testing.T) {
	t.Parallel()

	svc, err := NewDefault()
	require.NoError(t, err)

	_, blob, err := svc.Unwrap(testutil.Triangle(), nil)
	require.NoError(t, err)
	before := sha256.Sum256(blob)
	snapshot := append([]byte(nil), blob...)

	_, grown, err := svc.Unwrap(testutil.Quad(1), blob)
	require.NoError(t, err)
	assert.Equal(t, before, sha256.Sum256(blob))
	assert.Greater(t, len(grown), len(blob))
	assert.Equal(t, snapshot[BlobHeaderSize:], grown[BlobHeaderSize:len(blob)])
}

func TestUnwrapEmptyArea(t *testing.T) {
	t.Parallel()

	gen := newCounting(t)
	var events []Event
	svc, err := New(gen, WithEventFunc(func(e Event) { events = append(events, e) }))
	require.NoError(t, err)

	_, blob, err := svc.Unwrap(testutil.Triangle(), nil)
	require.NoError(t, err)

	degenerate := testutil.Degenerate()
	_, out, err := svc.Unwrap(degenerate, blob)
	require.ErrorIs(t, err, ErrEmptyArea)
	assert.Equal(t, blob, out)

	// Empty-area results are never cached.
	_, _, err = svc.Unwrap(degenerate, out)
	require.ErrorIs(t, err, ErrEmptyArea)
	assert.Equal(t, int64(3), gen.calls.Load())
	assert.Equal(t, EventEmptyArea, events[len(events)-1].Kind)
}

func TestUnwrapCorruptBlob(t *testing.T) {
	t.Parallel()

	gen := newCounting(t)
	svc, err := New(gen)
	require.NoError(t, err)

	m := testutil.Triangle()
	_, blob, err := svc.Unwrap(m, nil)
	require.NoError(t, err)
	truncated := blob[:len(blob)-1]

	_, out, err := svc.Unwrap(m, truncated)
	require.ErrorIs(t, err, ErrCorruptCache)
	assert.Equal(t, truncated, out)
	assert.Equal(t, int64(1), gen.calls.Load())

	_, _, err = svc.Lookup(m, truncated)
	require.ErrorIs(t, err, ErrCorruptCache)
}

func TestUnwrapDiscardCorrupt(t *testing.T) {
	t.Parallel()

	gen := newCounting(t)
	var kinds []EventKind
	svc, err := New(gen,
		WithDiscardCorrupt(true),
		WithEventFunc(func(e Event) { kinds = append(kinds, e.Kind) }),
	)
	require.NoError(t, err)

	m := testutil.Triangle()
	res, blob, err := svc.Unwrap(m, nil)
	require.NoError(t, err)

	got, fresh, err := svc.Unwrap(m, blob[:len(blob)-1])
	require.NoError(t, err)
	assert.Equal(t, res, got)
	assert.Equal(t, blob, fresh)
	assert.Equal(t, []EventKind{EventMiss, EventCorrupt, EventMiss}, kinds)
}

func TestUnwrapInvalidMesh(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Mesh)
	}{
		{"index out of range", func(m *Mesh) { m.Indices[2] = 3 }},
		{"normals length", func(m *Mesh) { m.Normals = m.Normals[:6] }},
		{"positions not triples", func(m *Mesh) { m.Positions = m.Positions[:8]; m.Normals = m.Normals[:8] }},
		{"indices not triples", func(m *Mesh) { m.Indices = m.Indices[:2] }},
		{"zero texel size", func(m *Mesh) { m.TexelSize = 0 }},
		{"negative texel size", func(m *Mesh) { m.TexelSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := newCounting(t)
			svc, err := New(gen)
			require.NoError(t, err)

			m := testutil.Triangle()
			tt.mutate(&m)
			_, _, err = svc.Unwrap(m, nil)
			require.ErrorIs(t, err, ErrInvalidMesh)
			assert.Zero(t, gen.calls.Load())
		})
	}
}

func TestUnwrapGeneratorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc, err := New(generatorFunc(func(Mesh) (Result, error) { return Result{}, boom }))
	require.NoError(t, err)

	_, blob, err := svc.Unwrap(testutil.Triangle(), nil)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, blob)
}

func TestLookupView(t *testing.T) {
	t.Parallel()

	svc, err := NewDefault()
	require.NoError(t, err)

	m := testutil.Quad(0.5)
	res, blob, err := svc.Unwrap(m, nil)
	require.NoError(t, err)

	v, ok, err := svc.Lookup(m, blob)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, BlobHeaderSize, v.Offset())
	assert.Equal(t, len(blob)-BlobHeaderSize, v.Len())
	assert.Equal(t, res.VertexCount(), v.VertexCount())
	for i := range res.VertexCount() {
		u, w := v.UV(i)
		ru, rw := res.UV(i)
		assert.Equal(t, ru, u)
		assert.Equal(t, rw, w)
	}

	_, ok, err = svc.Lookup(testutil.Triangle(), blob)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	a, b := testutil.Quad(0.5), testutil.Quad(0.5)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), ComputeFingerprint(0.5, a.Positions, a.Normals, a.Indices))

	// Known digest pins the byte layout across releases.
	empty := Mesh{TexelSize: 1}
	assert.Equal(t, "429d81ed2795e3c586906c6c335aa136", empty.Fingerprint().String())

	c := testutil.Quad(0.5)
	c.Indices = []uint32{0, 2, 3, 0, 1, 2}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint(), "reordered topology is a different key")
	assert.NotEqual(t, a.Fingerprint(), testutil.Quad(0.25).Fingerprint())
}

type generatorFunc func(Mesh) (Result, error)

func (f generatorFunc) Generate(m Mesh) (Result, error) {
	return f(m)
}
