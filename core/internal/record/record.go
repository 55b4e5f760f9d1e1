package record

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/meigma/unwrap/core/internal/unwraptype"
)

const (
	// HeaderSize is the size of the blob entry count.
	HeaderSize = 4

	fpSize = unwraptype.FingerprintSize

	offWidth       = fpSize
	offHeight      = offWidth + 4
	offVertexCount = offHeight + 4
	offVertices    = offVertexCount + 4

	// fixedSize covers every fixed-width field of a record.
	fixedSize = offVertices + 4
)

var le = binary.LittleEndian

// Len returns the encoded size of a record with the given counts.
func Len(vertexCount, indexCount int) int {
	return fixedSize + 12*vertexCount + 4*indexCount
}

// EntryLen returns the encoded size of e.
func EntryLen(e *unwraptype.Entry) int {
	return Len(len(e.Result.Vertices), len(e.Result.Indices))
}

// Encode returns the record encoding of e.
func Encode(e *unwraptype.Entry) ([]byte, error) {
	if err := checkEntry(e); err != nil {
		return nil, err
	}
	buf := make([]byte, EntryLen(e))
	encodeTo(buf, e)
	return buf, nil
}

// Decode parses a single record. The record must span all of data.
// The returned entry does not alias data.
func Decode(data []byte) (unwraptype.Entry, error) {
	v, err := parse(data, 0)
	if err != nil {
		return unwraptype.Entry{}, err
	}
	if v.Len() != len(data) {
		return unwraptype.Entry{}, corruptf("record is %d bytes, buffer has %d", v.Len(), len(data))
	}
	return v.Entry(), nil
}

func checkEntry(e *unwraptype.Entry) error {
	r := &e.Result
	if len(r.UVs) != 2*len(r.Vertices) {
		return fmt.Errorf("encode record: %d uv components for %d vertices", len(r.UVs), len(r.Vertices))
	}
	if uint64(len(r.Vertices)) > math.MaxUint32 || uint64(len(r.Indices)) > math.MaxUint32 {
		return fmt.Errorf("encode record: counts exceed uint32")
	}
	return nil
}

// encodeTo writes e into buf, which must be exactly EntryLen(e) bytes.
func encodeTo(buf []byte, e *unwraptype.Entry) {
	r := &e.Result
	copy(buf, e.Fingerprint[:])
	le.PutUint32(buf[offWidth:], r.Width)
	le.PutUint32(buf[offHeight:], r.Height)
	le.PutUint32(buf[offVertexCount:], uint32(len(r.Vertices))) //nolint:gosec // checked by checkEntry

	off := offVertices
	for _, x := range r.Vertices {
		le.PutUint32(buf[off:], x)
		off += 4
	}
	for _, f := range r.UVs {
		le.PutUint32(buf[off:], math.Float32bits(f))
		off += 4
	}
	le.PutUint32(buf[off:], uint32(len(r.Indices))) //nolint:gosec // checked by checkEntry
	off += 4
	for _, x := range r.Indices {
		le.PutUint32(buf[off:], x)
		off += 4
	}
}

// parse returns a view of the record starting at off in blob.
// Counts are bounds-checked against the remaining bytes before use.
func parse(blob []byte, off int) (View, error) {
	rem := uint64(len(blob) - off)
	if rem < offVertices {
		return View{}, corruptf("record at %d: %d bytes left, need %d for header", off, rem, offVertices)
	}
	vc := le.Uint32(blob[off+offVertexCount:])

	// Up to and including index_count.
	need := uint64(fixedSize) + 12*uint64(vc)
	if rem < need {
		return View{}, corruptf("record at %d: vertex count %d needs %d bytes, %d left", off, vc, need, rem)
	}
	ic := le.Uint32(blob[off+int(need)-4:])

	total := need + 4*uint64(ic)
	if rem < total {
		return View{}, corruptf("record at %d: index count %d needs %d bytes, %d left", off, ic, total, rem)
	}
	end := off + int(total)
	return View{
		data:   blob[off:end:end],
		off:    off,
		vcount: int(vc),
		icount: int(ic),
	}, nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{unwraptype.ErrCorruptCache}, args...)...)
}
