// Package cache keeps recognition answers in a badger database so that the
// same audio is not sent to a web service twice.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OneOfOne/xxhash"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/RyanBlaney/sonido-split/logging"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("cache: entry not found")

// Options configures a Store.
type Options struct {
	// Dir holds the database files. Required unless InMemory is set.
	Dir string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	// TTL is how long entries live. Zero keeps them forever.
	TTL time.Duration
}

// Store is a JSON value store on top of badger.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger logging.Logger
}

// Open opens or creates the database described by opts.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("cache: Dir is required unless InMemory is set")
	}

	logger := logging.WithFields(logging.Fields{
		"component": "cache",
	})

	dbOpts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %q: %w", opts.Dir, err)
	}

	return &Store{db: db, ttl: opts.TTL, logger: logger}, nil
}

// Key builds a key from a namespace and the xxhash digest of parts.
func Key(namespace string, parts ...[]byte) []byte {
	h := xxhash.New64()
	for _, p := range parts {
		_, _ = h.Write(p)
		// separator, so ("ab","c") and ("a","bc") differ
		_, _ = h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return []byte(namespace + ":" + hex.EncodeToString(sum))
}

// Get decodes the value stored under key into out.
func (s *Store) Get(key []byte, out any) error {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("cache read failed: %w", err)
	}

	if err := json.Unmarshal(val, out); err != nil {
		return fmt.Errorf("cache entry %s is corrupt: %w", key, err)
	}
	return nil
}

// Set stores value under key, expiring after the store's TTL.
func (s *Store) Set(key []byte, value any) error {
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, val)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's logging into ours, demoting its info
// chatter to debug.
type badgerLogger struct {
	logger logging.Logger
}

func (b badgerLogger) Errorf(f string, v ...any) {
	b.logger.Error(fmt.Errorf(f, v...), "badger error")
}

func (b badgerLogger) Warningf(f string, v ...any) {
	b.logger.Warn(fmt.Sprintf(f, v...))
}

func (b badgerLogger) Infof(f string, v ...any) {
	b.logger.Debug(fmt.Sprintf(f, v...))
}

func (b badgerLogger) Debugf(f string, v ...any) {
	b.logger.Debug(fmt.Sprintf(f, v...))
}
