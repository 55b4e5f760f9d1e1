// Package metrics exports unwrap events as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	unwrap "github.com/meigma/unwrap/core"
)

// Namespace prefixes every metric name.
const Namespace = "unwrap"

// Collector counts unwrap outcomes. Its Observe method is an
// unwrap.EventFunc and may be called concurrently.
type Collector struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	emptyArea prometheus.Counter
	corrupt   prometheus.Counter
	generate  prometheus.Histogram
	blobBytes prometheus.Histogram
}

// NewCollector creates the unwrap metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_hits_total",
			Help:      "Unwraps answered from a cache blob.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_misses_total",
			Help:      "Unwraps that ran the generator and grew the blob.",
		}),
		emptyArea: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "empty_area_total",
			Help:      "Meshes with no unwrappable surface.",
		}),
		corrupt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "corrupt_cache_total",
			Help:      "Cache blobs that failed to decode.",
		}),
		generate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generate_seconds",
			Help:      "Time spent generating atlases on cache misses.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		blobBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "blob_bytes",
			Help:      "Size of cache blobs after a hit or miss.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
		}),
	}
	for _, m := range []prometheus.Collector{c.hits, c.misses, c.emptyArea, c.corrupt, c.generate, c.blobBytes} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("register unwrap metrics: %w", err)
		}
	}
	return c, nil
}

// Observe records one unwrap event.
func (c *Collector) Observe(e unwrap.Event) {
	switch e.Kind {
	case unwrap.EventHit:
		c.hits.Inc()
		c.blobBytes.Observe(float64(e.BlobSize))
	case unwrap.EventMiss:
		c.misses.Inc()
		c.generate.Observe(e.Duration.Seconds())
		c.blobBytes.Observe(float64(e.BlobSize))
	case unwrap.EventEmptyArea:
		c.emptyArea.Inc()
		c.generate.Observe(e.Duration.Seconds())
	case unwrap.EventCorrupt:
		c.corrupt.Inc()
	}
}
