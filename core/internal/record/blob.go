package record

import (
	"bytes"
	"iter"
	"math"

	"github.com/meigma/unwrap/core/internal/unwraptype"
)

// Count returns the entry count declared by blob's header.
// An empty blob has zero entries.
func Count(blob []byte) (int, error) {
	if len(blob) == 0 {
		return 0, nil
	}
	if len(blob) < HeaderSize {
		return 0, corruptf("blob is %d bytes, need %d for header", len(blob), HeaderSize)
	}
	return int(le.Uint32(blob)), nil
}

// Lookup scans blob for the first record whose fingerprint equals fp.
//
// On a hit the returned view aliases blob. A miss walks every record and
// confirms the blob ends exactly after the last one, so a miss also
// validates the blob. Structural damage is reported as ErrCorruptCache.
func Lookup(blob []byte, fp unwraptype.Fingerprint) (View, bool, error) {
	n, err := Count(blob)
	if err != nil {
		return View{}, false, err
	}
	off := HeaderSize
	for i := range n {
		if len(blob)-off < fpSize {
			return View{}, false, corruptf("record %d at %d: truncated fingerprint", i, off)
		}
		match := bytes.Equal(blob[off:off+fpSize], fp[:])
		v, err := parse(blob, off)
		if err != nil {
			return View{}, false, err
		}
		if match {
			return v, true, nil
		}
		off += v.Len()
	}
	if len(blob) > 0 && off != len(blob) {
		return View{}, false, corruptf("%d trailing bytes after %d records", len(blob)-off, n)
	}
	return View{}, false, nil
}

// Validate walks every record in blob and returns the entry count.
func Validate(blob []byte) (int, error) {
	n := 0
	for _, err := range Entries(blob) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Entries returns an iterator over the records of blob in insertion order.
//
// If the blob is damaged the iterator yields a single error and stops.
// The returned views are only valid while blob remains alive.
func Entries(blob []byte) iter.Seq2[View, error] {
	return func(yield func(View, error) bool) {
		n, err := Count(blob)
		if err != nil {
			yield(View{}, err)
			return
		}
		off := HeaderSize
		for range n {
			v, err := parse(blob, off)
			if err != nil {
				yield(View{}, err)
				return
			}
			if !yield(v, nil) {
				return
			}
			off += v.Len()
		}
		if len(blob) > 0 && off != len(blob) {
			yield(View{}, corruptf("%d trailing bytes after %d records", len(blob)-off, n))
		}
	}
}

// Append returns a new blob holding the records of blob followed by e.
//
// blob is validated first and is never modified; the result is a fresh
// allocation of exactly len(blob)+EntryLen(e) bytes (plus the header when
// blob is empty). Existing records are copied byte for byte.
func Append(blob []byte, e *unwraptype.Entry) ([]byte, error) {
	n, err := Validate(blob)
	if err != nil {
		return nil, err
	}
	if n == math.MaxUint32 {
		return nil, corruptf("entry count overflow")
	}
	if err := checkEntry(e); err != nil {
		return nil, err
	}

	base := len(blob)
	if base == 0 {
		base = HeaderSize
	}
	out := make([]byte, base+EntryLen(e))
	copy(out, blob)
	le.PutUint32(out, uint32(n+1)) //nolint:gosec // bounded above
	encodeTo(out[base:], e)
	return out, nil
}
