package unwrap

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	unwrapcore "github.com/meigma/unwrap/core"
	"github.com/meigma/unwrap/core/cache"
	"github.com/meigma/unwrap/core/metrics"
)

// Client unwraps meshes against per-resource cache blobs.
//
// Client wraps the unwrap service and a blob store, and adds store lifecycle,
// logging and metrics. It is safe for concurrent use.
type Client struct {
	svc       *unwrapcore.Service
	resources *unwrapcore.ResourceCache

	// Configuration collected by options.
	gen            Generator
	store          cache.Store
	closers        []io.Closer
	logger         *slog.Logger
	registerer     prometheus.Registerer
	onEvent        EventFunc
	discardCorrupt bool
}

// NewClient creates a client with the given options.
//
// If no store is configured, blobs are kept in memory for the life of the
// client. If no generator is configured, the built-in chart packer is used.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Join(err, c.Close())
		}
	}
	if err := c.init(); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	return c, nil
}

func (c *Client) init() error {
	onEvent := c.onEvent
	if c.registerer != nil {
		collector, err := metrics.NewCollector(c.registerer)
		if err != nil {
			return err
		}
		onEvent = chainEvents(collector.Observe, c.onEvent)
	}

	svcOpts := []unwrapcore.Option{
		unwrapcore.WithLogger(c.logger),
		unwrapcore.WithDiscardCorrupt(c.discardCorrupt),
	}
	if onEvent != nil {
		svcOpts = append(svcOpts, unwrapcore.WithEventFunc(onEvent))
	}

	var err error
	if c.gen != nil {
		c.svc, err = unwrapcore.New(c.gen, svcOpts...)
	} else {
		c.svc, err = unwrapcore.NewDefault(svcOpts...)
	}
	if err != nil {
		return err
	}

	if c.store == nil {
		c.store = cache.NewMemory()
	}
	c.resources, err = unwrapcore.NewResourceCache(c.svc, c.store,
		unwrapcore.WithResourceLogger(c.logger))
	return err
}

func chainEvents(fns ...EventFunc) EventFunc {
	return func(e Event) {
		for _, fn := range fns {
			if fn != nil {
				fn(e)
			}
		}
	}
}

// Unwrap returns the unwrap of mesh using the blob stored under key,
// generating and storing it on a miss.
func (c *Client) Unwrap(ctx context.Context, key string, mesh Mesh) (Result, error) {
	return c.resources.Unwrap(ctx, key, mesh)
}

// Lookup returns the cached unwrap of mesh under key without generating.
func (c *Client) Lookup(key string, mesh Mesh) (Result, bool, error) {
	return c.resources.Lookup(key, mesh)
}

// Forget deletes the blob stored under key.
func (c *Client) Forget(key string) error {
	return c.resources.Forget(key)
}

// UnwrapBlob unwraps mesh against a caller-owned blob and returns the blob
// to keep. The configured store is not used.
func (c *Client) UnwrapBlob(mesh Mesh, blob []byte) (Result, []byte, error) {
	return c.svc.Unwrap(mesh, blob)
}

// UnwrapAll unwraps independent caller-owned jobs concurrently.
// See [unwrapcore.Service.UnwrapAll].
func (c *Client) UnwrapAll(ctx context.Context, jobs []Job, limit int) ([]JobResult, error) {
	return c.svc.UnwrapAll(ctx, jobs, limit)
}

// Store returns the blob store used by the client.
func (c *Client) Store() Store {
	return c.store
}

// Close releases stores opened by the client. Stores passed with
// [WithStore] are left open.
func (c *Client) Close() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}
