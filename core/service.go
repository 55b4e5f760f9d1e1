package unwrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meigma/unwrap/core/internal/record"
)

// Generator computes a fresh unwrap for a mesh.
//
// Implementations must be deterministic: the same mesh always yields the
// same result, so cached records stay equivalent to a recomputation. A mesh
// with no unwrappable surface must yield ErrEmptyArea.
type Generator interface {
	Generate(mesh Mesh) (Result, error)
}

// Service unwraps meshes against a caller-owned cache blob.
//
// A Service holds no per-blob state and is safe for concurrent use as long
// as its Generator is.
type Service struct {
	gen            Generator
	logger         *slog.Logger
	onEvent        EventFunc
	discardCorrupt bool
}

// New returns a Service that computes misses with gen.
func New(gen Generator, opts ...Option) (*Service, error) {
	if gen == nil {
		return nil, errors.New("unwrap: generator is nil")
	}
	s := &Service{gen: gen}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Service) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

func (s *Service) emit(e Event) {
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

// Unwrap returns the unwrap of mesh and the blob to keep for next time.
//
// On a cache hit the result is decoded from blob and blob itself is returned
// unchanged. On a miss the generator runs, and the result is returned with a
// new blob holding one more record; the input slice is never modified.
//
// A nil or empty blob is an empty cache. ErrInvalidMesh is reported before
// any hashing. ErrEmptyArea is returned without caching. ErrCorruptCache is
// returned for a damaged blob unless WithDiscardCorrupt is set.
func (s *Service) Unwrap(mesh Mesh, blob []byte) (Result, []byte, error) {
	res, next, _, err := s.unwrap(mesh, blob)
	return res, next, err
}

// unwrap is Unwrap that also reports whether next differs from blob and
// must be kept.
func (s *Service) unwrap(mesh Mesh, blob []byte) (res Result, next []byte, grown bool, err error) {
	if err := mesh.Validate(); err != nil {
		return Result{}, blob, false, err
	}
	fp := mesh.Fingerprint()

	view, ok, err := record.Lookup(blob, fp)
	if err != nil {
		s.emit(Event{Kind: EventCorrupt, Fingerprint: fp, BlobSize: len(blob)})
		if !s.discardCorrupt {
			return Result{}, blob, false, fmt.Errorf("lookup %s: %w", fp, err)
		}
		s.log().Warn("discarding corrupt unwrap cache", "fingerprint", fp.String(), "size", len(blob), "error", err)
		blob = nil
	}
	if ok {
		s.log().Debug("unwrap cache hit", "fingerprint", fp.String(), "offset", view.Offset())
		s.emit(Event{Kind: EventHit, Fingerprint: fp, BlobSize: len(blob)})
		return view.Result(), blob, false, nil
	}

	start := time.Now()
	res, err = s.gen.Generate(mesh)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, ErrEmptyArea) {
			s.log().Debug("mesh has no unwrappable area", "fingerprint", fp.String())
			s.emit(Event{Kind: EventEmptyArea, Fingerprint: fp, Duration: elapsed, BlobSize: len(blob)})
		}
		return Result{}, blob, false, err
	}

	next, err = record.Append(blob, &Entry{Fingerprint: fp, Result: res})
	if err != nil {
		return Result{}, blob, false, fmt.Errorf("append %s: %w", fp, err)
	}
	s.log().Debug("unwrap cache miss",
		"fingerprint", fp.String(),
		"duration", elapsed,
		"vertices", len(res.Vertices),
		"blob_size", len(next),
	)
	s.emit(Event{Kind: EventMiss, Fingerprint: fp, Duration: elapsed, BlobSize: len(next)})
	return res, next, true, nil
}

// Lookup returns the cached record for mesh without decoding it.
//
// The returned view aliases blob and is only valid while blob remains alive
// and unmodified.
func (s *Service) Lookup(mesh Mesh, blob []byte) (View, bool, error) {
	if err := mesh.Validate(); err != nil {
		return View{}, false, err
	}
	return record.Lookup(blob, mesh.Fingerprint())
}
