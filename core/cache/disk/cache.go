package disk

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/unwrap/core/cache"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
	defaultFilePerm       = 0o600
	tempPattern           = ".tmp-*"
)

var _ cache.Store = (*Store)(nil)

// Store implements cache.Store using the local filesystem.
// Each key is stored as one enveloped file named by the sha256 digest of the
// key, with optional sharding by digest prefix. The store is safe for
// concurrent use.
type Store struct {
	dir            string            // root directory for stored blobs
	shardPrefixLen int               // number of hex chars for subdirectory sharding
	dirPerm        os.FileMode       // permissions for created directories
	maxBytes       int64             // maximum store size (0 = unlimited)
	maxBlobSize    uint64            // maximum decoded blob size (0 = unlimited)
	compression    cache.Compression // payload compression for new files
	bytes          atomic.Int64      // current total size of stored files
	pruneMu        sync.Mutex        // serializes prune operations
	logger         *slog.Logger
}

// Option configures a disk store.
type Option func(*Store)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(s *Store) {
		s.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for store directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithMaxBytes sets the maximum store size in bytes.
// Values < 0 are invalid. Use 0 to disable the limit.
func WithMaxBytes(n int64) Option {
	return func(s *Store) {
		s.maxBytes = n
	}
}

// WithMaxBlobSize limits the decoded size of a stored blob.
// Use 0 to disable the limit.
func WithMaxBlobSize(n uint64) Option {
	return func(s *Store) {
		s.maxBlobSize = n
	}
}

// WithCompression sets the payload compression for written files.
// Defaults to zstd.
func WithCompression(c cache.Compression) Option {
	return func(s *Store) {
		s.compression = c
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a disk-backed store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store dir is empty")
	}
	s := &Store{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
		maxBlobSize:    1 << 30,
		compression:    cache.CompressionZstd,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if s.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, err
	}
	size, err := dirSize(dir)
	if err != nil {
		return nil, err
	}
	s.bytes.Store(size)
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Get returns the blob stored for key.
//
// A file that fails to decode is removed and its error returned, so the next
// Get for key is a plain miss.
func (s *Store) Get(key string) ([]byte, bool, error) {
	data, err := s.read(key)
	if err != nil || data == nil {
		return nil, false, err
	}
	blob, err := cache.Decode(data, s.maxBlobSize)
	if err != nil {
		s.log().Warn("removing undecodable cache file", "key", key, "error", err)
		if delErr := s.Delete(key); delErr != nil {
			return nil, false, errors.Join(err, delErr)
		}
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return blob, true, nil
}

// Stat returns the envelope header of the file stored for key.
func (s *Store) Stat(key string) (cache.Info, bool, error) {
	data, err := s.read(key)
	if err != nil || data == nil {
		return cache.Info{}, false, err
	}
	info, err := cache.Inspect(data)
	if err != nil {
		return cache.Info{}, false, err
	}
	return info, true, nil
}

func (s *Store) read(key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from a digest, not user input
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Put replaces the blob stored for key.
func (s *Store) Put(key string, blob []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := cache.Encode(blob, s.compression)
	if err != nil {
		return err
	}

	var old int64
	if info, statErr := os.Stat(path); statErr == nil {
		old = info.Size()
	}
	if ok, err := s.ensureCapacity(int64(len(data)) - old); err != nil {
		return err
	} else if !ok {
		s.log().Warn("blob exceeds store capacity, not stored",
			"key", key, "size", len(data), "max_bytes", s.maxBytes)
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	// Re-stat under the rename so concurrent writers to one key keep the
	// size counter consistent.
	if info, statErr := os.Stat(path); statErr == nil {
		old = info.Size()
	} else {
		old = 0
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	s.bytes.Add(int64(len(data)) - old)
	return nil
}

// Delete removes the blob stored for key.
func (s *Store) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return nil
		}
		return statErr
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	s.bytes.Add(-info.Size())
	return nil
}

// MaxBytes returns the configured store size limit (0 = unlimited).
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// SizeBytes returns the current store size in bytes.
func (s *Store) SizeBytes() int64 {
	return s.bytes.Load()
}

// Prune removes the least recently written blobs until the store is at or
// below targetBytes. Returns the number of bytes freed.
func (s *Store) Prune(targetBytes int64) (int64, error) {
	if targetBytes < 0 {
		targetBytes = 0
	}
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	freed, remaining, err := pruneDir(s.dir, targetBytes)
	if err != nil {
		return 0, err
	}
	s.bytes.Store(remaining)
	return freed, nil
}

// Path returns the file path used for key.
func (s *Store) Path(key string) (string, error) {
	return s.path(key)
}

func (s *Store) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("key is empty")
	}
	hexKey := digest.FromString(key).Encoded()
	if s.shardPrefixLen <= 0 {
		return filepath.Join(s.dir, hexKey), nil
	}
	prefixLen := min(s.shardPrefixLen, len(hexKey))
	return filepath.Join(s.dir, hexKey[:prefixLen], hexKey), nil
}

func (s *Store) ensureCapacity(need int64) (bool, error) {
	if s.maxBytes <= 0 || need <= 0 {
		return true, nil
	}
	if need > s.maxBytes {
		return false, nil
	}
	if s.SizeBytes()+need <= s.maxBytes {
		return true, nil
	}
	if _, err := s.Prune(s.maxBytes - need); err != nil {
		return false, err
	}
	return s.SizeBytes()+need <= s.maxBytes, nil
}
