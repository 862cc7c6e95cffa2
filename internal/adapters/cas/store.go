// Package cas implements the file-per-key durable tier of a persistent store.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Backend = (*Store)(nil)

const entryExt = ".json"

// entry is the on-disk envelope. The key is kept so that Keys can be listed
// without a separate index.
type entry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// Store implements ports.Backend using one JSON file per key, named by the
// SHA-256 of the key.
type Store struct {
	dir    string
	mu     sync.RWMutex
	closed bool
}

// NewStore creates a Store backed by dir. The directory is created if needed.
func NewStore(dir string) (*Store, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "dir", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory holding the entries.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads one value.
func (s *Store) Load(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, zerr.Wrap(domain.ErrStoreClosed, "file backend")
	}

	e, ok, err := s.read(s.filename(key))
	if err != nil || !ok {
		return nil, false, err
	}
	if e.Key != key {
		return nil, false, zerr.With(zerr.Wrap(domain.ErrCacheCorrupted, "entry key mismatch"), "key", key)
	}
	return e.Value, true, nil
}

// Keys lists every stored key in lexical order.
func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, zerr.Wrap(domain.ErrStoreClosed, "file backend")
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "dir", s.dir)
	}

	keys := make([]string, 0, len(entries))
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entryExt) {
			continue
		}
		e, ok, err := s.read(filepath.Join(s.dir, de.Name()))
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, e.Key)
		}
	}
	// Entry files are named by hash, so the directory order says nothing about keys.
	slices.Sort(keys)
	return keys, nil
}

// Apply writes every put to a temporary file renamed over the entry, then deletes removes.
// A crash leaves each entry either old or new, never torn.
func (s *Store) Apply(puts map[string][]byte, removes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerr.Wrap(domain.ErrStoreClosed, "file backend")
	}

	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "dir", s.dir)
	}

	for _, key := range removes {
		if err := os.Remove(s.filename(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
		}
	}

	for key, value := range puts {
		if err := s.write(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the store closed. It holds no open handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) read(filename string) (entry, bool, error) {
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entry{}, false, nil
		}
		return entry{}, false, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, false, zerr.With(zerr.Wrap(domain.ErrCacheCorrupted, err.Error()), "file", filename)
	}
	return e, true, nil
}

func (s *Store) write(key string, value []byte) error {
	data, err := json.Marshal(entry{Key: key, Value: value})
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	tmp, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	if err := os.Rename(tmpName, s.filename(key)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	return nil
}

func (s *Store) filename(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+entryExt)
}
