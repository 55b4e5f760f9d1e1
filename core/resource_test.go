package unwrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unwrap/core/cache"
	"github.com/meigma/unwrap/core/testutil"
)

func newResourceCache(t *testing.T, store cache.Store, opts ...Option) (*ResourceCache, *countingGenerator) {
	t.Helper()
	gen := newCounting(t)
	svc, err := New(gen, opts...)
	require.NoError(t, err)
	rc, err := NewResourceCache(svc, store)
	require.NoError(t, err)
	return rc, gen
}

func TestNewResourceCacheValidation(t *testing.T) {
	t.Parallel()

	svc, err := NewDefault()
	require.NoError(t, err)

	_, err = NewResourceCache(nil, cache.NewMemory())
	require.Error(t, err)
	_, err = NewResourceCache(svc, nil)
	require.Error(t, err)
}

func TestResourceCacheMissStoresHitReuses(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	rc, gen := newResourceCache(t, store)
	ctx := context.Background()

	res1, err := rc.Unwrap(ctx, "res://a", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen.calls.Load())

	blob, ok, err := store.Get("res://a")
	require.NoError(t, err)
	require.True(t, ok)
	n, err := Validate(blob)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res2, err := rc.Unwrap(ctx, "res://a", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen.calls.Load())
	assert.Equal(t, res1, res2)

	// A second mesh under the same key grows the same blob.
	_, err = rc.Unwrap(ctx, "res://a", testutil.Quad(1))
	require.NoError(t, err)
	blob, _, err = store.Get("res://a")
	require.NoError(t, err)
	n, err = Validate(blob)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Keys do not share blobs.
	_, err = rc.Unwrap(ctx, "res://b", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, int64(3), gen.calls.Load())
	assert.Equal(t, 2, store.Len())
}

func TestResourceCacheConcurrentSameKey(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	rc, _ := newResourceCache(t, store)
	ctx := context.Background()

	meshes := []Mesh{testutil.Triangle(), testutil.Quad(1), testutil.Quad(0.5), testutil.Quad(0.25)}
	var wg sync.WaitGroup
	errs := make(chan error, len(meshes)*4)
	for range 4 {
		for _, m := range meshes {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := rc.Unwrap(ctx, "shared", m); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Every distinct mesh landed in the blob exactly once.
	blob, ok, err := store.Get("shared")
	require.NoError(t, err)
	require.True(t, ok)
	n, err := Validate(blob)
	require.NoError(t, err)
	assert.Equal(t, len(meshes), n)
	for _, m := range meshes {
		_, found, err := Lookup(blob, m.Fingerprint())
		require.NoError(t, err)
		assert.True(t, found)
	}
}

func TestResourceCacheCorruptStoredData(t *testing.T) {
	t.Parallel()

	store := testutil.NewMockStore()
	store.SetErrors(ErrDecompression, nil)
	rc, gen := newResourceCache(t, store)

	_, err := rc.Unwrap(context.Background(), "k", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen.calls.Load())
	_, puts, deletes := store.Counts()
	assert.Equal(t, 1, puts)
	assert.Equal(t, 1, deletes)

	blob, ok := store.Blob("k")
	require.True(t, ok)
	n, err := Validate(blob)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResourceCacheCorruptBlobInStore(t *testing.T) {
	t.Parallel()

	store := testutil.NewMockStore()
	store.Set("k", []byte{3, 0, 0, 0, 0xde, 0xad})
	rc, gen := newResourceCache(t, store)

	want, err := rc.Unwrap(context.Background(), "k", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen.calls.Load())

	blob, ok := store.Blob("k")
	require.True(t, ok)
	view, found, err := Lookup(blob, testutil.Triangle().Fingerprint())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, view.Result())
}

func TestResourceCacheStoreError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	store := testutil.NewMockStore()
	store.SetErrors(boom, nil)
	rc, gen := newResourceCache(t, store)

	_, err := rc.Unwrap(context.Background(), "k", testutil.Triangle())
	require.ErrorIs(t, err, boom)
	assert.Zero(t, gen.calls.Load())

	store.SetErrors(nil, boom)
	_, err = rc.Unwrap(context.Background(), "k", testutil.Triangle())
	require.ErrorIs(t, err, boom)
	_, ok := store.Blob("k")
	assert.False(t, ok)
}

func TestResourceCacheEmptyAreaNotStored(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	rc, _ := newResourceCache(t, store)

	degenerate := testutil.Degenerate()
	_, err := rc.Unwrap(context.Background(), "k", degenerate)
	require.ErrorIs(t, err, ErrEmptyArea)
	assert.Zero(t, store.Len())
}

func TestResourceCacheCanceled(t *testing.T) {
	t.Parallel()

	rc, gen := newResourceCache(t, cache.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rc.Unwrap(ctx, "k", testutil.Triangle())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, gen.calls.Load())
}

func TestResourceCacheLookupAndForget(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	rc, gen := newResourceCache(t, store)

	_, ok, err := rc.Lookup("k", testutil.Triangle())
	require.NoError(t, err)
	assert.False(t, ok)

	want, err := rc.Unwrap(context.Background(), "k", testutil.Triangle())
	require.NoError(t, err)

	got, ok, err := rc.Lookup("k", testutil.Triangle())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = rc.Lookup("k", testutil.Quad(1))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.Forget("k"))
	assert.Zero(t, store.Len())

	_, err = rc.Unwrap(context.Background(), "k", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen.calls.Load())
}

func TestResourceCacheDiscardCorruptSameLength(t *testing.T) {
	t.Parallel()

	// A zeroed blob claiming five records, exactly as long as the blob a
	// single triangle grows into.
	want := BlobHeaderSize + RecordLen(3, 3)
	corrupt := make([]byte, want)
	corrupt[0] = 5

	store := testutil.NewMockStore()
	store.Set("k", corrupt)
	rc, gen := newResourceCache(t, store, WithDiscardCorrupt(true))

	_, err := rc.Unwrap(context.Background(), "k", testutil.Triangle())
	require.NoError(t, err)

	blob, ok := store.Blob("k")
	require.True(t, ok)
	require.Len(t, blob, want)
	_, found, err := Lookup(blob, testutil.Triangle().Fingerprint())
	require.NoError(t, err)
	assert.True(t, found, "fresh blob must replace the corrupt one")

	_, err = rc.Unwrap(context.Background(), "k", testutil.Triangle())
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen.calls.Load())
}

func TestResourceCacheSharedCallSurvivesCanceledCaller(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	base := newCounting(t)
	gen := generatorFunc(func(m Mesh) (Result, error) {
		once.Do(func() { close(started) })
		<-release
		return base.Generate(m)
	})
	svc, err := New(gen)
	require.NoError(t, err)
	store := cache.NewMemory()
	rc, err := NewResourceCache(svc, store)
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := rc.Unwrap(ctxA, "k", testutil.Triangle())
		errA <- err
	}()
	<-started

	errB := make(chan error, 1)
	go func() {
		_, err := rc.Unwrap(context.Background(), "k", testutil.Triangle())
		errB <- err
	}()
	// Give B time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	require.NoError(t, <-errB)

	got, ok, err := rc.Lookup("k", testutil.Triangle())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotZero(t, got.Width)
}

func TestResourceCacheLookupCorruptStored(t *testing.T) {
	t.Parallel()

	store := testutil.NewMockStore()
	store.Set("k", []byte{3, 0, 0, 0, 0xde, 0xad})
	rc, gen := newResourceCache(t, store)

	_, ok, err := rc.Lookup("k", testutil.Triangle())
	require.NoError(t, err)
	assert.False(t, ok)
	_, stored := store.Blob("k")
	assert.False(t, stored, "corrupt blob must be deleted")

	store.SetErrors(ErrDecompression, nil)
	_, ok, err = rc.Lookup("k", testutil.Triangle())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, gen.calls.Load())
}
