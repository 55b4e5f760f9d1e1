package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	unwrap "github.com/meigma/unwrap/core"
	"github.com/meigma/unwrap/core/testutil"
)

func TestObserve(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.Observe(unwrap.Event{Kind: unwrap.EventMiss, Duration: 2 * time.Millisecond, BlobSize: 100})
	c.Observe(unwrap.Event{Kind: unwrap.EventHit, BlobSize: 100})
	c.Observe(unwrap.Event{Kind: unwrap.EventHit, BlobSize: 100})
	c.Observe(unwrap.Event{Kind: unwrap.EventEmptyArea})
	c.Observe(unwrap.Event{Kind: unwrap.EventCorrupt})

	assert.InDelta(t, 2, promtest.ToFloat64(c.hits), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.misses), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.emptyArea), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.corrupt), 0)

	n, err := promtest.GatherAndCount(reg, "unwrap_generate_seconds", "unwrap_blob_bytes")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCollectorWithService(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	svc, err := unwrap.NewDefault(unwrap.WithEventFunc(c.Observe))
	require.NoError(t, err)

	m := testutil.Triangle()
	_, blob, err := svc.Unwrap(m, nil)
	require.NoError(t, err)
	_, _, err = svc.Unwrap(m, blob)
	require.NoError(t, err)
	_, _, err = svc.Unwrap(m, []byte{9, 0, 0, 0})
	require.ErrorIs(t, err, unwrap.ErrCorruptCache)

	assert.InDelta(t, 1, promtest.ToFloat64(c.hits), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.misses), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.corrupt), 0)
}

func TestNewCollectorDuplicate(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	require.Error(t, err)
}
