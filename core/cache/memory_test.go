package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unwrap/core/internal/record"
	"github.com/meigma/unwrap/core/internal/unwraptype"
)

func testBlob(t *testing.T) []byte {
	t.Helper()
	blob, err := record.Append(nil, &unwraptype.Entry{
		Fingerprint: unwraptype.Fingerprint{1, 2, 3},
		Result: unwraptype.Result{
			Width:    4,
			Height:   4,
			Vertices: []uint32{0, 1, 2},
			UVs:      []float32{0.25, 0.25, 0.5, 0.25, 0.25, 0.5},
			Indices:  []uint32{0, 1, 2},
		},
	})
	require.NoError(t, err)
	return blob
}

func TestMemoryPutGetDelete(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_, ok, err := m.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	blob := testBlob(t)
	require.NoError(t, m.Put("k", blob))
	assert.Equal(t, 1, m.Len())

	got, ok, err := m.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, blob, got)

	// Stored bytes are isolated from caller mutation.
	got[len(got)-1] ^= 0xff
	blob[0] ^= 0xff
	again, _, err := m.Get("k")
	require.NoError(t, err)
	assert.NotEqual(t, got, again)
	_, err = record.Validate(again)
	require.NoError(t, err)

	require.NoError(t, m.Delete("k"))
	require.NoError(t, m.Delete("k"))
	assert.Zero(t, m.Len())
}

func TestMemoryRejectsCorrupt(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	err := m.Put("k", []byte{5, 0, 0, 0, 1})
	require.ErrorIs(t, err, unwraptype.ErrCorruptCache)
	assert.Zero(t, m.Len())
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	blob := testBlob(t)
	for _, c := range []Compression{CompressionNone, CompressionZstd} {
		data, err := Encode(blob, c)
		require.NoError(t, err)

		info, err := Inspect(data)
		require.NoError(t, err)
		assert.Equal(t, c, info.Compression)
		assert.Equal(t, 1, int(info.Entries))

		got, err := Decode(data, 0)
		require.NoError(t, err)
		assert.Equal(t, blob, got)
	}
}
