package unwrap

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unwrap/core/cache"
	"github.com/meigma/unwrap/core/testutil"
)

func TestClientMemoryStore(t *testing.T) {
	t.Parallel()

	var events atomic.Int64
	c, err := NewClient(WithEventFunc(func(Event) { events.Add(1) }))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })

	ctx := context.Background()
	want, err := c.Unwrap(ctx, "mesh", testutil.Triangle())
	require.NoError(t, err)
	got, err := c.Unwrap(ctx, "mesh", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int64(2), events.Load())

	cached, ok, err := c.Lookup("mesh", testutil.Triangle())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, cached)

	require.NoError(t, c.Forget("mesh"))
	_, ok, err = c.Lookup("mesh", testutil.Triangle())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientCacheDirPersists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	c1, err := NewClient(WithCacheDir(dir))
	require.NoError(t, err)
	want, err := c1.Unwrap(ctx, "res://crate", testutil.Triangle())
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	var calls atomic.Int64
	c2, err := NewClient(
		WithCacheDir(dir),
		WithEventFunc(func(e Event) {
			if e.Kind == EventMiss {
				calls.Add(1)
			}
		}),
	)
	require.NoError(t, err)
	got, err := c2.Unwrap(ctx, "res://crate", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, calls.Load(), "second client must hit the persisted blob")
}

func TestClientBadgerDir(t *testing.T) {
	t.Parallel()

	c, err := NewClient(WithBadgerDir(t.TempDir()))
	require.NoError(t, err)

	_, err = c.Unwrap(context.Background(), "k", testutil.Triangle())
	require.NoError(t, err)
	_, ok, err := c.Lookup("k", testutil.Triangle())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, c.Close())
}

func TestClientMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := NewClient(WithMetrics(reg))
	require.NoError(t, err)

	_, blob, err := c.UnwrapBlob(testutil.Triangle(), nil)
	require.NoError(t, err)
	_, _, err = c.UnwrapBlob(testutil.Triangle(), blob)
	require.NoError(t, err)

	expected := `
# HELP unwrap_cache_hits_total Unwraps answered from a cache blob.
# TYPE unwrap_cache_hits_total counter
unwrap_cache_hits_total 1
# HELP unwrap_cache_misses_total Unwraps that ran the generator and grew the blob.
# TYPE unwrap_cache_misses_total counter
unwrap_cache_misses_total 1
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected),
		"unwrap_cache_hits_total", "unwrap_cache_misses_total"))
}

func TestClientOptionErrors(t *testing.T) {
	t.Parallel()

	_, err := NewClient(WithStore(nil))
	require.Error(t, err)

	_, err = NewClient(WithGenerator(nil))
	require.Error(t, err)

	_, err = NewClient(WithMetrics(nil))
	require.Error(t, err)

	_, err = NewClient(WithStore(cache.NewMemory()), WithStore(cache.NewMemory()))
	require.Error(t, err)
}

func TestClientCustomGenerator(t *testing.T) {
	t.Parallel()

	gen := generatorFunc(func(Mesh) (Result, error) {
		return Result{
			Width:    2,
			Height:   2,
			Vertices: []uint32{0, 1, 2},
			UVs:      []float32{0, 0, 1, 0, 0, 1},
			Indices:  []uint32{0, 1, 2},
		}, nil
	})
	store := cache.NewMemory()
	c, err := NewClient(WithGenerator(gen), WithStore(store))
	require.NoError(t, err)

	res, err := c.Unwrap(context.Background(), "k", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Width)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, Store(store), c.Store())
}

type generatorFunc func(Mesh) (Result, error)

func (f generatorFunc) Generate(m Mesh) (Result, error) {
	return f(m)
}
