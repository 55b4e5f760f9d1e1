package unwrap

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/unwrap/core/cache"
)

// lockStripes is the number of mutexes keys are hashed onto.
const lockStripes = 64

// ResourceCache unwraps meshes against blobs kept in a cache.Store, one blob
// per owner key.
//
// Calls for the same key are serialized so concurrent misses never lose a
// record. Identical concurrent calls (same key and fingerprint) share one
// unwrap.
type ResourceCache struct {
	svc    *Service
	store  cache.Store
	logger *slog.Logger

	seed  maphash.Seed
	locks [lockStripes]sync.Mutex
	group singleflight.Group // zero value is valid
}

// NewResourceCache returns a ResourceCache that unwraps with svc and keeps
// blobs in store.
func NewResourceCache(svc *Service, store cache.Store, opts ...ResourceOption) (*ResourceCache, error) {
	if svc == nil {
		return nil, errors.New("unwrap: service is nil")
	}
	if store == nil {
		return nil, errors.New("unwrap: store is nil")
	}
	c := &ResourceCache{
		svc:   svc,
		store: store,
		seed:  maphash.MakeSeed(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (c *ResourceCache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

func (c *ResourceCache) lock(key string) *sync.Mutex {
	return &c.locks[maphash.String(c.seed, key)%lockStripes]
}

// Unwrap returns the unwrap of mesh using the blob stored under key.
//
// A miss stores the grown blob before returning. Stored data that fails to
// decode is deleted and the call proceeds against an empty cache.
//
// Identical concurrent calls share one unwrap that is not tied to any single
// caller's context; each caller stops waiting when its own ctx is done.
func (c *ResourceCache) Unwrap(ctx context.Context, key string, mesh Mesh) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := mesh.Validate(); err != nil {
		return Result{}, err
	}
	fp := mesh.Fingerprint()

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key+"\x00"+fp.String(), func() (any, error) {
		return c.unwrapLocked(shared, key, mesh)
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return Result{}, r.Err
	}
	res, ok := r.Val.(Result)
	if !ok {
		return Result{}, fmt.Errorf("unwrap %s: unexpected result type %T", key, r.Val)
	}
	if r.Shared {
		return res.Clone(), nil
	}
	return res, nil
}

func (c *ResourceCache) unwrapLocked(ctx context.Context, key string, mesh Mesh) (Result, error) {
	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	blob, err := c.load(key)
	if err != nil {
		return Result{}, err
	}

	res, next, grown, err := c.svc.unwrap(mesh, blob)
	if errors.Is(err, ErrCorruptCache) {
		blob = c.discard(key, err)
		res, next, grown, err = c.svc.unwrap(mesh, blob)
	}
	if err != nil {
		return Result{}, err
	}
	if !grown {
		return res, nil
	}
	if err := c.store.Put(key, next); err != nil {
		return Result{}, fmt.Errorf("store %s: %w", key, err)
	}
	return res, nil
}

// load returns the blob stored under key. Stored data that fails to decode
// is deleted and reported as an empty blob. The caller holds the key lock.
func (c *ResourceCache) load(key string) ([]byte, error) {
	blob, _, err := c.store.Get(key)
	if err == nil {
		return blob, nil
	}
	if !discardable(err) {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return c.discard(key, err), nil
}

// discard drops a stored blob that failed to decode and returns the empty
// blob to continue with.
func (c *ResourceCache) discard(key string, cause error) []byte {
	c.log().Warn("discarding stored unwrap cache", "key", key, "error", cause)
	if err := c.store.Delete(key); err != nil {
		c.log().Warn("failed to delete stored unwrap cache", "key", key, "error", err)
	}
	return nil
}

// Lookup returns the cached result for mesh under key without generating.
//
// Stored data that fails to decode is deleted and reported as a miss, the
// same way Unwrap treats it.
func (c *ResourceCache) Lookup(key string, mesh Mesh) (Result, bool, error) {
	if err := mesh.Validate(); err != nil {
		return Result{}, false, err
	}
	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()

	blob, err := c.load(key)
	if err != nil || len(blob) == 0 {
		return Result{}, false, err
	}
	view, ok, err := c.svc.Lookup(mesh, blob)
	if errors.Is(err, ErrCorruptCache) {
		c.discard(key, err)
		return Result{}, false, nil
	}
	if err != nil || !ok {
		return Result{}, false, err
	}
	return view.Result(), true, nil
}

// Forget deletes the blob stored under key.
func (c *ResourceCache) Forget(key string) error {
	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()
	return c.store.Delete(key)
}

func discardable(err error) bool {
	return errors.Is(err, ErrCorruptCache) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrDecompression)
}
