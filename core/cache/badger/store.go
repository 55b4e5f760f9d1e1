// Package badger implements cache.Store on a Badger key-value database.
package badger

import (
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v3"

	"github.com/meigma/unwrap/core/cache"
)

const defaultPrefix = "unwrap/"

var _ cache.Store = (*Store)(nil)

// Store keeps one enveloped blob per key in a Badger database.
// It is safe for concurrent use.
type Store struct {
	db          *badgerdb.DB
	ownsDB      bool
	prefix      string
	compression cache.Compression
	maxBlobSize uint64
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix under which blobs are stored.
// Defaults to "unwrap/".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithCompression sets the payload compression for written values.
// Defaults to zstd.
func WithCompression(c cache.Compression) Option {
	return func(s *Store) {
		s.compression = c
	}
}

// WithMaxBlobSize limits the decoded size of a stored blob.
// Use 0 to disable the limit.
func WithMaxBlobSize(n uint64) Option {
	return func(s *Store) {
		s.maxBlobSize = n
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens (or creates) a Badger database in dir. Close releases it.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("badger dir is empty")
	}
	bopts := badgerdb.DefaultOptions(dir)
	bopts.Logger = nil

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s := New(db, opts...)
	s.ownsDB = true
	return s, nil
}

// New returns a Store on an already open database. Close does not close db.
func New(db *badgerdb.DB, opts ...Option) *Store {
	s := &Store{
		db:          db,
		prefix:      defaultPrefix,
		compression: cache.CompressionZstd,
		maxBlobSize: 1 << 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

func (s *Store) key(key string) []byte {
	return []byte(s.prefix + key)
}

func (s *Store) read(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Get implements cache.Store. A value that fails to decode is deleted and
// its error returned.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, errors.New("key is empty")
	}
	data, err := s.read(key)
	if err != nil || data == nil {
		return nil, false, err
	}
	blob, err := cache.Decode(data, s.maxBlobSize)
	if err != nil {
		s.log().Warn("removing undecodable cache value", "key", key, "error", err)
		if delErr := s.Delete(key); delErr != nil {
			return nil, false, errors.Join(err, delErr)
		}
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return blob, true, nil
}

// Stat returns the envelope header of the value stored for key.
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

// Put implements cache.Store.
func (s *Store) Put(key string, blob []byte) error {
	if key == "" {
		return errors.New("key is empty")
	}
	data, err := cache.Encode(blob, s.compression)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(s.key(key), data)
	}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete implements cache.Store.
func (s *Store) Delete(key string) error {
	if key == "" {
		return errors.New("key is empty")
	}
	if err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(s.key(key))
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys returns the stored keys in lexical order.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(s.prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(s.prefix):]))
		}
		return nil
	})
	return keys, err
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
