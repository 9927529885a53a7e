// Package store provides a BoltDB-backed settings and record store for camper.
// Values are grouped into namespaces, one bolt bucket per namespace, so each
// node role keeps its keys apart from the others in the same database file.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

// ErrStorageUnavailable marks a read or write that failed at the database
// layer. Callers that hold a usable default are expected to log and continue.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Store wraps a bbolt database.
type Store struct {
	db  *bolt.DB
	mu  sync.RWMutex
	log zerolog.Logger
}

// New opens or creates a BoltDB file at the given path. Buckets are created
// lazily on first write to their namespace.
func New(path string, log zerolog.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening database %s: %v", ErrStorageUnavailable, path, err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the underlying BoltDB.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetInt returns the integer stored under namespace/key, or def when the key
// has never been written. A database failure also returns def, alongside an
// error wrapping ErrStorageUnavailable.
func (s *Store) GetInt(namespace, key string, def int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val := def
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("corrupt value %q under %s/%s: %w", raw, namespace, key, err)
		}
		val = n
		return nil
	})
	if err != nil {
		return def, fmt.Errorf("%w: reading %s/%s: %v", ErrStorageUnavailable, namespace, key, err)
	}
	return val, nil
}

// PutInt stores an integer under namespace/key.
func (s *Store) PutInt(namespace, key string, val int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(strconv.Itoa(val)))
	})
	if err != nil {
		return fmt.Errorf("%w: writing %s/%s: %v", ErrStorageUnavailable, namespace, key, err)
	}

	s.log.Debug().
		Str("namespace", namespace).
		Str("key", key).
		Int("value", val).
		Msg("Stored value")
	return nil
}

// GetRecord unmarshals the msgpack record under namespace/key into out.
// The boolean reports whether the key existed.
func (s *Store) GetRecord(namespace, key string, out any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := msgpack.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshaling %s/%s: %w", namespace, key, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: reading %s/%s: %v", ErrStorageUnavailable, namespace, key, err)
	}
	return found, nil
}

// PutRecord stores a msgpack-encoded record under namespace/key.
func (s *Store) PutRecord(namespace, key string, rec any) error {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling %s/%s: %w", namespace, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("%w: writing %s/%s: %v", ErrStorageUnavailable, namespace, key, err)
	}
	return nil
}

// ForEachRecord calls fn with every raw record in the namespace. A missing
// namespace is an empty one. Iteration stops at the first error fn returns.
func (s *Store) ForEachRecord(namespace string, fn func(key string, raw []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
	if err != nil {
		return fmt.Errorf("%w: scanning %s: %v", ErrStorageUnavailable, namespace, err)
	}
	return nil
}
