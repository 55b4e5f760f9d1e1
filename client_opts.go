package unwrap

import (
	"errors"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meigma/unwrap/core/cache"
	"github.com/meigma/unwrap/core/cache/badger"
	"github.com/meigma/unwrap/core/cache/disk"
	unwraphttp "github.com/meigma/unwrap/core/cache/http"
)

// Option configures a Client.
type Option func(*Client) error

// DefaultCacheSize is the disk store size limit used by WithCacheDir.
const DefaultCacheSize int64 = 256 << 20 // 256 MB

// --- Store Options ---

// WithCacheDir stores blobs as files under dir, pruning the least recently
// written once the directory exceeds DefaultCacheSize.
//
// For a custom size or compression, build a store with the disk package and
// pass it to WithStore.
func WithCacheDir(dir string) Option {
	return func(c *Client) error {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
		s, err := disk.New(dir,
			disk.WithMaxBytes(DefaultCacheSize),
			disk.WithLogger(c.logger),
		)
		if err != nil {
			return err
		}
		return setStore(c, s)
	}
}

// WithBadgerDir stores blobs in a Badger database at dir. The database is
// closed by Client.Close.
func WithBadgerDir(dir string) Option {
	return func(c *Client) error {
		s, err := badger.Open(dir, badger.WithLogger(c.logger))
		if err != nil {
			return err
		}
		c.closers = append(c.closers, s)
		return setStore(c, s)
	}
}

// WithRemoteURL stores blobs as objects under baseURL on an HTTP server
// that accepts GET, PUT and DELETE.
func WithRemoteURL(baseURL string) Option {
	return func(c *Client) error {
		s, err := unwraphttp.New(baseURL, unwraphttp.WithLogger(c.logger))
		if err != nil {
			return err
		}
		return setStore(c, s)
	}
}

// WithStore sets a custom blob store. The client does not close it.
func WithStore(s Store) Option {
	return func(c *Client) error {
		if s == nil {
			return errors.New("unwrap: store is nil")
		}
		return setStore(c, s)
	}
}

func setStore(c *Client, s cache.Store) error {
	if c.store != nil {
		return errors.New("unwrap: store configured twice")
	}
	c.store = s
	return nil
}

// --- Service Options ---

// WithGenerator replaces the built-in chart packer.
func WithGenerator(gen Generator) Option {
	return func(c *Client) error {
		if gen == nil {
			return errors.New("unwrap: generator is nil")
		}
		c.gen = gen
		return nil
	}
}

// WithDiscardCorrupt makes unwraps treat a damaged caller-owned blob as
// empty instead of returning ErrCorruptCache. Damaged stored blobs are
// always discarded.
func WithDiscardCorrupt(enabled bool) Option {
	return func(c *Client) error {
		c.discardCorrupt = enabled
		return nil
	}
}

// WithEventFunc sets a callback invoked once per unwrap with its outcome.
func WithEventFunc(fn EventFunc) Option {
	return func(c *Client) error {
		c.onEvent = fn
		return nil
	}
}

// WithMetrics registers unwrap metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) error {
		if reg == nil {
			return errors.New("unwrap: registerer is nil")
		}
		c.registerer = reg
		return nil
	}
}

// WithLogger sets the logger for the client and the stores it opens.
// Set it before store options so they pick it up.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}
