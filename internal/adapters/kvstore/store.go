// Package kvstore implements the two-tier persistent key-value store every cache is built on.
package kvstore

import (
	"maps"
	"slices"
	"sync"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

// Store is a typed map with an in-memory tier in front of a durable ports.Backend.
// Mutations stay in memory until a full Flush. Values returned by Get are shared
// with the memory tier and must not be mutated.
type Store[K comparable, V any] struct {
	name    string
	backend ports.Backend
	keys    KeyCodec[K]
	values  ValueCodec[V]

	mu      sync.Mutex
	cache   map[string]V
	dirty   map[string]V
	removed map[string]struct{}
	closed  bool
}

var _ ports.Cache = (*Store[string, int])(nil)

// Open creates a store named name on top of backend.
func Open[K comparable, V any](name string, backend ports.Backend, keys KeyCodec[K], values ValueCodec[V]) *Store[K, V] {
	return &Store[K, V]{
		name:    name,
		backend: backend,
		keys:    keys,
		values:  values,
		cache:   make(map[string]V),
		dirty:   make(map[string]V),
		removed: make(map[string]struct{}),
	}
}

// Name returns the store name used in errors and logs.
func (s *Store[K, V]) Name() string {
	return s.name
}

// Get returns the value of k. ok is false when k is absent.
func (s *Store[K, V]) Get(k K) (v V, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return v, false, err
	}

	key := s.keys.Encode(k)
	if _, gone := s.removed[key]; gone {
		return v, false, nil
	}
	if v, ok := s.dirty[key]; ok {
		return v, true, nil
	}
	if v, ok := s.cache[key]; ok {
		return v, true, nil
	}

	data, found, err := s.backend.Load(key)
	if err != nil {
		return v, false, domain.NewStoreIOError(s.name, "load", err)
	}
	if !found {
		return v, false, nil
	}
	v, err = s.values.Unmarshal(data)
	if err != nil {
		return v, false, domain.NewStoreIOError(s.name, "decode", zerr.With(err, "key", key))
	}
	s.cache[key] = v
	return v, true, nil
}

// Contains reports whether k is present.
func (s *Store[K, V]) Contains(k K) (bool, error) {
	_, ok, err := s.Get(k)
	return ok, err
}

// Put sets the value of k.
func (s *Store[K, V]) Put(k K, v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	key := s.keys.Encode(k)
	delete(s.removed, key)
	delete(s.cache, key)
	s.dirty[key] = v
	return nil
}

// Remove deletes k. Removing an absent key is not an error.
func (s *Store[K, V]) Remove(k K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	key := s.keys.Encode(k)
	delete(s.dirty, key)
	delete(s.cache, key)
	s.removed[key] = struct{}{}
	return nil
}

// Keys returns every present key ordered by its encoding.
func (s *Store[K, V]) Keys() ([]K, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	stored, err := s.backend.Keys()
	if err != nil {
		return nil, domain.NewStoreIOError(s.name, "keys", err)
	}

	all := make(map[string]struct{}, len(stored)+len(s.dirty))
	for _, key := range stored {
		all[key] = struct{}{}
	}
	for key := range s.dirty {
		all[key] = struct{}{}
	}
	for key := range s.removed {
		delete(all, key)
	}

	encoded := slices.Sorted(maps.Keys(all))
	keys := make([]K, 0, len(encoded))
	for _, key := range encoded {
		k, err := s.keys.Decode(key)
		if err != nil {
			return nil, domain.NewStoreIOError(s.name, "decode", err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Flush writes pending mutations to the durable tier in one batch.
// With memoryCachesOnly set it only drops clean cached values and does no I/O.
// Pending mutations are kept when the durable write fails.
func (s *Store[K, V]) Flush(memoryCachesOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	clear(s.cache)
	if memoryCachesOnly || (len(s.dirty) == 0 && len(s.removed) == 0) {
		return nil
	}

	puts := make(map[string][]byte, len(s.dirty))
	for key, v := range s.dirty {
		data, err := s.values.Marshal(v)
		if err != nil {
			return domain.NewStoreIOError(s.name, "encode", zerr.With(err, "key", key))
		}
		puts[key] = data
	}
	removes := slices.Sorted(maps.Keys(s.removed))

	if err := s.backend.Apply(puts, removes); err != nil {
		return domain.NewStoreIOError(s.name, "flush", err)
	}

	clear(s.dirty)
	clear(s.removed)
	return nil
}

// Pending reports whether mutations are waiting for a full flush.
func (s *Store[K, V]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0 || len(s.removed) > 0
}

// Close releases the durable tier. Unflushed mutations are discarded.
// Every later operation fails with domain.ErrStoreClosed.
func (s *Store[K, V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.closed = true
	clear(s.cache)
	clear(s.dirty)
	clear(s.removed)
	if err := s.backend.Close(); err != nil {
		return domain.NewStoreIOError(s.name, "close", err)
	}
	return nil
}

func (s *Store[K, V]) checkOpen() error {
	if s.closed {
		return zerr.With(zerr.Wrap(domain.ErrStoreClosed, "store unusable"), "store", s.name)
	}
	return nil
}
