// Package testutil provides mesh fixtures and store fakes for tests.
package testutil

import (
	"slices"
	"sync"

	"github.com/meigma/unwrap/core/cache"
	"github.com/meigma/unwrap/core/internal/unwraptype"
)

// Triangle returns a unit right triangle in the XY plane facing +Z.
func Triangle() unwraptype.Mesh {
	return unwraptype.Mesh{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:   []uint32{0, 1, 2},
		TexelSize: 1,
	}
}

// Quad returns a 2x2 square made of two triangles.
func Quad(texelSize float32) unwraptype.Mesh {
	return unwraptype.Mesh{
		Positions: []float32{0, 0, 0, 2, 0, 0, 2, 2, 0, 0, 2, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		TexelSize: texelSize,
	}
}

// Degenerate returns a triangle with collinear corners and no area.
func Degenerate() unwraptype.Mesh {
	return unwraptype.Mesh{
		Positions: []float32{0, 0, 0, 1, 0, 0, 2, 0, 0},
		Normals:   make([]float32, 9),
		Indices:   []uint32{0, 1, 2},
		TexelSize: 1,
	}
}

var _ cache.Store = (*MockStore)(nil)

// MockStore implements cache.Store in memory and counts calls.
// Errors injected with SetErrors are returned instead of touching the map.
type MockStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	getErr error
	putErr error

	gets, puts, deletes int
}

// NewMockStore returns an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{blobs: make(map[string][]byte)}
}

// Get implements cache.Store.
func (s *MockStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	blob, ok := s.blobs[key]
	return slices.Clone(blob), ok, nil
}

// Put implements cache.Store. Blobs are stored without validation.
func (s *MockStore) Put(key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.blobs[key] = slices.Clone(blob)
	return nil
}

// Delete implements cache.Store.
func (s *MockStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.blobs, key)
	return nil
}

// SetErrors replaces the injected Get and Put errors.
func (s *MockStore) SetErrors(getErr, putErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = getErr
	s.putErr = putErr
}

// Set stores raw bytes under key, bypassing counters.
func (s *MockStore) Set(key string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = slices.Clone(blob)
}

// Blob returns the bytes stored under key.
func (s *MockStore) Blob(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[key]
	return slices.Clone(blob), ok
}

// Counts returns the number of Get, Put and Delete calls.
func (s *MockStore) Counts() (gets, puts, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts, s.deletes
}
