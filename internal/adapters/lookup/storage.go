// Package lookup maintains the symbol-to-file index used to find the dependents of a changed declaration.
package lookup

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/cespare/xxhash/v2"
	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/adapters/pathconv"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

// Store names inside the lookups directory.
const (
	FileToIDName      = "file-to-id"
	IDToFileName      = "id-to-file"
	LookupsName       = "lookups"
	FileToSymbolsName = "file-to-symbols"
	MetaName          = "meta"
)

// Keys of the meta store.
const (
	nextIDKey  = "next-id"
	keyModeKey = "key-mode"
)

// Key schemes recorded under keyModeKey. Zero means none was recorded yet.
const (
	keyModeHashed uint32 = iota + 1
	keyModeFullyQualified
)

// fqSeparator joins scope and name of fully qualified keys. It cannot occur in identifiers.
const fqSeparator = "\x1f"

// Options tunes the index.
type Options struct {
	// StoreFullyQualifiedNames keys the index by scope and name instead of their hash.
	StoreFullyQualifiedNames bool
	// TrackChanges records every edge change until ResetChanges.
	TrackChanges bool
}

// Storage maps each lookup symbol to the set of files referencing it.
// Files are stored as compact integer ids in roaring bitmaps.
type Storage struct {
	conv *pathconv.Converter
	opts Options

	fileToID      *kvstore.Store[domain.PathKey, uint32]
	idToFile      *kvstore.Store[uint32, domain.PathKey]
	lookups       *kvstore.Store[string, []byte]
	fileToSymbols *kvstore.Store[domain.PathKey, []domain.LookupSymbol]
	meta          *kvstore.Store[string, uint32]

	mu      sync.Mutex
	changes []domain.LookupChange
}

// New opens every store of the index through open. Stores opened before a
// failure are closed again. An index written with the other key scheme is
// rebuilt from the per-file symbol lists.
func New(open kvstore.Factory, conv *pathconv.Converter, opts Options) (*Storage, error) {
	backends := make(map[string]ports.Backend, 5)
	for _, name := range []string{FileToIDName, IDToFileName, LookupsName, FileToSymbolsName, MetaName} {
		b, err := open(name)
		if err != nil {
			for _, opened := range backends {
				_ = opened.Close()
			}
			return nil, err
		}
		backends[name] = b
	}

	s := &Storage{
		conv:          conv,
		opts:          opts,
		fileToID:      kvstore.Open(FileToIDName, backends[FileToIDName], kvstore.PathKeys(), kvstore.JSON[uint32]()),
		idToFile:      kvstore.Open(IDToFileName, backends[IDToFileName], kvstore.Uint32Keys(), kvstore.JSON[domain.PathKey]()),
		lookups:       kvstore.Open(LookupsName, backends[LookupsName], kvstore.StringKeys(), kvstore.Bytes()),
		fileToSymbols: kvstore.Open(FileToSymbolsName, backends[FileToSymbolsName], kvstore.PathKeys(), kvstore.JSON[[]domain.LookupSymbol]()),
		meta:          kvstore.Open(MetaName, backends[MetaName], kvstore.StringKeys(), kvstore.JSON[uint32]()),
	}
	if err := s.checkKeyMode(); err != nil {
		for _, c := range s.Caches() {
			_ = c.Close()
		}
		return nil, err
	}
	return s, nil
}

func (s *Storage) keyMode() uint32 {
	if s.opts.StoreFullyQualifiedNames {
		return keyModeFullyQualified
	}
	return keyModeHashed
}

// checkKeyMode records the key scheme of a new index and rekeys an index
// that was written with the other one.
func (s *Storage) checkKeyMode() error {
	stored, ok, err := s.meta.Get(keyModeKey)
	if err != nil {
		return err
	}
	want := s.keyMode()
	if ok && stored == want {
		return nil
	}
	if ok {
		if err := s.rekey(); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to rekey lookup index"), "key_mode", want)
		}
	}
	return s.meta.Put(keyModeKey, want)
}

// rekey rebuilds every bitmap under the current key scheme.
func (s *Storage) rekey() error {
	old, err := s.lookups.Keys()
	if err != nil {
		return err
	}
	for _, k := range old {
		if err := s.lookups.Remove(k); err != nil {
			return err
		}
	}

	files, err := s.fileToSymbols.Keys()
	if err != nil {
		return err
	}
	for _, key := range files {
		symbols, _, err := s.fileToSymbols.Get(key)
		if err != nil {
			return err
		}
		id, ok, err := s.fileToID.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewStoreIOError(FileToIDName, "rekey", zerr.With(zerr.Wrap(domain.ErrCacheCorrupted, "file without id"), "path", string(key)))
		}
		for k := range s.keySet(symbols) {
			if err := s.update(k, func(bm *roaring.Bitmap) { bm.Add(id) }); err != nil {
				return err
			}
		}
	}
	return nil
}

// Caches returns the stores owned by the index.
func (s *Storage) Caches() []ports.Cache {
	return []ports.Cache{s.fileToID, s.idToFile, s.lookups, s.fileToSymbols, s.meta}
}

// Get returns the sorted keys of every file referencing sym.
func (s *Storage) Get(sym domain.LookupSymbol) ([]domain.PathKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bm, err := s.bitmap(s.key(sym))
	if err != nil {
		return nil, err
	}
	return s.files(bm)
}

// Affected returns the sorted keys of every file referencing at least one of symbols.
func (s *Storage) Affected(symbols []domain.LookupSymbol) ([]domain.PathKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	union := roaring.New()
	for _, sym := range symbols {
		bm, err := s.bitmap(s.key(sym))
		if err != nil {
			return nil, err
		}
		union.Or(bm)
	}
	return s.files(union)
}

// Symbols returns the symbols the file referenced at its last replacement.
func (s *Storage) Symbols(path string) ([]domain.LookupSymbol, error) {
	syms, _, err := s.fileToSymbols.Get(s.conv.ToKey(path))
	if err != nil {
		return nil, err
	}
	return slices.Clone(syms), nil
}

// ReplaceLookupsFrom makes symbols the complete set of lookups of the file.
// The file is dropped from every symbol it no longer references.
func (s *Storage) ReplaceLookupsFrom(path string, symbols []domain.LookupSymbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(s.conv.ToKey(path), symbols)
}

// RemoveLookupsFrom drops the file from the index and releases its id.
func (s *Storage) RemoveLookupsFrom(path string) error {
	return s.RemoveKey(s.conv.ToKey(path))
}

// RemoveKey is RemoveLookupsFrom for an already converted key.
func (s *Storage) RemoveKey(key domain.PathKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replace(key, nil); err != nil {
		return err
	}
	id, ok, err := s.fileToID.Get(key)
	if err != nil || !ok {
		return err
	}
	if err := s.fileToID.Remove(key); err != nil {
		return err
	}
	return s.idToFile.Remove(id)
}

// Changes returns the edge changes recorded since the last reset.
// It is always empty when change tracking is disabled.
func (s *Storage) Changes() []domain.LookupChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.changes)
}

// ResetChanges forgets the recorded edge changes.
func (s *Storage) ResetChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = nil
}

func (s *Storage) replace(key domain.PathKey, symbols []domain.LookupSymbol) error {
	current := normalize(symbols)

	previous, _, err := s.fileToSymbols.Get(key)
	if err != nil {
		return err
	}
	if slices.Equal(previous, current) {
		return nil
	}

	var id uint32
	if len(current) > 0 {
		if id, err = s.idFor(key); err != nil {
			return err
		}
	} else {
		var ok bool
		if id, ok, err = s.fileToID.Get(key); err != nil || !ok {
			return err
		}
	}

	// Bitmaps are diffed by storage key so that colliding hashed keys keep the file.
	prevKeys := s.keySet(previous)
	curKeys := s.keySet(current)
	for k := range prevKeys {
		if _, keep := curKeys[k]; !keep {
			if err := s.update(k, func(bm *roaring.Bitmap) { bm.Remove(id) }); err != nil {
				return err
			}
		}
	}
	for k := range curKeys {
		if _, had := prevKeys[k]; !had {
			if err := s.update(k, func(bm *roaring.Bitmap) { bm.Add(id) }); err != nil {
				return err
			}
		}
	}

	if s.opts.TrackChanges {
		s.track(key, previous, current)
	}

	if len(current) == 0 {
		return s.fileToSymbols.Remove(key)
	}
	return s.fileToSymbols.Put(key, current)
}

func (s *Storage) track(key domain.PathKey, previous, current []domain.LookupSymbol) {
	for _, sym := range previous {
		if _, found := slices.BinarySearchFunc(current, sym, compareSymbols); !found {
			s.changes = append(s.changes, domain.LookupChange{Symbol: sym, Path: key, Kind: domain.EdgeRemoved})
		}
	}
	for _, sym := range current {
		if _, found := slices.BinarySearchFunc(previous, sym, compareSymbols); !found {
			s.changes = append(s.changes, domain.LookupChange{Symbol: sym, Path: key, Kind: domain.EdgeAdded})
		}
	}
}

func (s *Storage) idFor(key domain.PathKey) (uint32, error) {
	id, ok, err := s.fileToID.Get(key)
	if err != nil || ok {
		return id, err
	}

	next, _, err := s.meta.Get(nextIDKey)
	if err != nil {
		return 0, err
	}
	if err := s.meta.Put(nextIDKey, next+1); err != nil {
		return 0, err
	}
	if err := s.fileToID.Put(key, next); err != nil {
		return 0, err
	}
	if err := s.idToFile.Put(next, key); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Storage) update(k string, fn func(*roaring.Bitmap)) error {
	bm, err := s.bitmap(k)
	if err != nil {
		return err
	}
	fn(bm)
	if bm.IsEmpty() {
		return s.lookups.Remove(k)
	}
	data, err := bm.ToBytes()
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "lookup", k)
	}
	return s.lookups.Put(k, data)
}

func (s *Storage) bitmap(k string) (*roaring.Bitmap, error) {
	bm := roaring.New()
	data, ok, err := s.lookups.Get(k)
	if err != nil || !ok {
		return bm, err
	}
	if err := bm.UnmarshalBinary(data); err != nil {
		return nil, domain.NewStoreIOError(LookupsName, "decode", zerr.Wrap(domain.ErrCacheCorrupted, err.Error()))
	}
	return bm, nil
}

func (s *Storage) files(bm *roaring.Bitmap) ([]domain.PathKey, error) {
	keys := make([]domain.PathKey, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		key, ok, err := s.idToFile.Get(it.Next())
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *Storage) key(sym domain.LookupSymbol) string {
	if s.opts.StoreFullyQualifiedNames {
		return sym.Scope + fqSeparator + sym.Name
	}
	return fmt.Sprintf("%016x%016x", xxhash.Sum64String(sym.Scope), xxhash.Sum64String(sym.Name))
}

func (s *Storage) keySet(symbols []domain.LookupSymbol) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		set[s.key(sym)] = struct{}{}
	}
	return set
}

func normalize(symbols []domain.LookupSymbol) []domain.LookupSymbol {
	if len(symbols) == 0 {
		return nil
	}
	out := slices.Clone(symbols)
	slices.SortFunc(out, compareSymbols)
	return slices.Compact(out)
}

func compareSymbols(a, b domain.LookupSymbol) int {
	return cmp.Or(cmp.Compare(a.Scope, b.Scope), cmp.Compare(a.Name, b.Name))
}
