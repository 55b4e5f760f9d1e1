package envelope

import (
	"bytes"
	_ "crypto/sha256" // register sha256 for go-digest
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/unwrap/core/internal/record"
	"github.com/meigma/unwrap/core/internal/unwraptype"
)

// Version is the envelope format version written by Marshal.
//
// Version 1 wraps the count-prefixed record layout with MD5 fingerprints
// over texel size, indices, positions and normals.
const Version = 1

// Magic identifies an enveloped blob.
var Magic = [4]byte{'U', 'V', 'C', '1'}

const (
	prefixSize = len(Magic) + 4

	// DefaultMaxSize bounds the uncompressed blob size accepted by Unmarshal.
	DefaultMaxSize = 1 << 30

	maxPrealloc = 64 << 20
)

// Compression identifies the payload compression of an envelope.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

type config struct {
	compression Compression
	maxSize     uint64
}

// Option configures Marshal and Unmarshal.
type Option func(*config)

// WithCompression sets the payload compression used by Marshal.
// Defaults to CompressionZstd.
func WithCompression(c Compression) Option {
	return func(cfg *config) {
		cfg.compression = c
	}
}

// WithMaxSize limits the uncompressed blob size accepted by Unmarshal.
// Use 0 to disable the limit. Defaults to DefaultMaxSize.
func WithMaxSize(limit uint64) Option {
	return func(cfg *config) {
		cfg.maxSize = limit
	}
}

func newConfig(opts []Option) config {
	cfg := config{compression: CompressionZstd, maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// The encoder and decoder are safe for concurrent EncodeAll/DecodeAll calls.
var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderLowmem(true))
	})
)

// Marshal validates blob and wraps it in an envelope.
func Marshal(blob []byte, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)
	n, err := record.Validate(blob)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch cfg.compression {
	case CompressionNone:
		payload = blob
	case CompressionZstd:
		enc, err := encoder()
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		payload = enc.EncodeAll(blob, nil)
	default:
		return nil, fmt.Errorf("envelope: unknown compression %d", cfg.compression)
	}

	h := header{
		version:     Version,
		compression: cfg.compression,
		entryCount:  uint32(n), //nolint:gosec // record counts are uint32
		rawSize:     uint64(len(blob)),
		digest:      digest.FromBytes(blob).String(),
	}
	hdr := h.build()
	if uint64(len(hdr)) > math.MaxUint32 {
		return nil, fmt.Errorf("envelope: header too large")
	}

	out := make([]byte, 0, prefixSize+len(hdr)+len(payload))
	out = append(out, Magic[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(hdr))) //nolint:gosec // checked above
	out = append(out, hdr...)
	out = append(out, payload...)
	return out, nil
}

// Info describes an envelope without its payload.
type Info struct {
	Version     uint16
	Compression Compression
	Entries     int
	RawSize     uint64
	StoredSize  int
	Digest      digest.Digest
}

// Inspect parses the envelope header of data.
func Inspect(data []byte) (Info, error) {
	h, _, err := split(data)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Version:     h.version,
		Compression: h.compression,
		Entries:     int(h.entryCount),
		RawSize:     h.rawSize,
		StoredSize:  len(data),
		Digest:      digest.Digest(h.digest),
	}, nil
}

// Unmarshal unwraps an envelope and returns the validated blob.
//
// Framing, size, digest and record-structure failures wrap ErrCorruptCache.
// Unknown versions wrap ErrUnsupportedVersion and payloads that fail to
// decompress wrap ErrDecompression.
func Unmarshal(data []byte, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)
	h, payload, err := split(data)
	if err != nil {
		return nil, err
	}
	if cfg.maxSize > 0 && h.rawSize > cfg.maxSize {
		return nil, corruptf("raw size %d exceeds limit %d", h.rawSize, cfg.maxSize)
	}
	dgst, err := digest.Parse(h.digest)
	if err != nil {
		return nil, corruptf("digest %q: %v", h.digest, err)
	}

	var blob []byte
	switch h.compression {
	case CompressionNone:
		blob = bytes.Clone(payload)
	case CompressionZstd:
		if len(payload) == 0 && h.rawSize == 0 {
			break
		}
		dec, err := decoder()
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		blob, err = dec.DecodeAll(payload, make([]byte, 0, min(h.rawSize, maxPrealloc)))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", unwraptype.ErrDecompression, err)
		}
	default:
		return nil, corruptf("unknown compression %d", h.compression)
	}

	if uint64(len(blob)) != h.rawSize {
		return nil, corruptf("payload is %d bytes, header says %d", len(blob), h.rawSize)
	}
	if got := dgst.Algorithm().FromBytes(blob); got != dgst {
		return nil, corruptf("digest mismatch: got %s, want %s", got, dgst)
	}
	n, err := record.Validate(blob)
	if err != nil {
		return nil, err
	}
	if uint64(n) != uint64(h.entryCount) {
		return nil, corruptf("blob holds %d entries, header says %d", n, h.entryCount)
	}
	return blob, nil
}

// split checks the envelope prefix and returns the header and payload.
func split(data []byte) (header, []byte, error) {
	if len(data) < prefixSize {
		return header{}, nil, corruptf("envelope is %d bytes", len(data))
	}
	if !bytes.Equal(data[:len(Magic)], Magic[:]) {
		return header{}, nil, corruptf("bad magic %q", data[:len(Magic)])
	}
	hlen := uint64(binary.LittleEndian.Uint32(data[len(Magic):]))
	if hlen > uint64(len(data)-prefixSize) {
		return header{}, nil, corruptf("header length %d exceeds envelope", hlen)
	}
	h, err := parseHeader(data[prefixSize : prefixSize+int(hlen)])
	if err != nil {
		return header{}, nil, corruptf("%v", err)
	}
	if h.version != Version {
		return header{}, nil, fmt.Errorf("%w: %d", unwraptype.ErrUnsupportedVersion, h.version)
	}
	return h, data[prefixSize+int(hlen):], nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: envelope: "+format, append([]any{unwraptype.ErrCorruptCache}, args...)...)
}
