// Package inputs tracks the content snapshot of every source at its last successful compilation.
package inputs

import (
	"context"
	"errors"
	iofs "io/fs"
	"runtime"
	"slices"
	"sync"

	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/adapters/pathconv"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// StoreName is the name of the snapshot store inside the inputs directory.
const StoreName = "source-snapshot"

// RemoveListener is notified when a source is forgotten so dependent caches can drop it too.
type RemoveListener func(key domain.PathKey) error

// Cache maps each source to its last compiled InputSnapshot.
type Cache struct {
	conv      *pathconv.Converter
	snapshots *kvstore.Store[domain.PathKey, domain.InputSnapshot]
	hasher    ports.Fingerprinter

	mu        sync.RWMutex
	listeners []RemoveListener
}

// New creates an inputs cache on top of backend.
func New(backend ports.Backend, conv *pathconv.Converter, hasher ports.Fingerprinter) *Cache {
	return &Cache{
		conv:      conv,
		snapshots: kvstore.Open(StoreName, backend, kvstore.PathKeys(), kvstore.JSON[domain.InputSnapshot]()),
		hasher:    hasher,
	}
}

// Caches returns the stores owned by the inputs cache.
func (c *Cache) Caches() []ports.Cache {
	return []ports.Cache{c.snapshots}
}

// OnRemove registers a listener called by Remove.
func (c *Cache) OnRemove(fn RemoveListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// IsChanged reports whether the file differs from its recorded snapshot.
// Files without a snapshot and files that no longer exist count as changed.
func (c *Cache) IsChanged(path string) (bool, error) {
	prev, ok, err := c.snapshots.Get(c.conv.ToKey(path))
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	cur, err := c.hasher.Fingerprint(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return !prev.Equal(cur), nil
}

// Snapshot fingerprints the current content of the file.
func (c *Cache) Snapshot(path string) (domain.InputSnapshot, error) {
	return c.hasher.Fingerprint(path)
}

// Get returns the recorded snapshot of the file.
func (c *Cache) Get(path string) (domain.InputSnapshot, bool, error) {
	return c.snapshots.Get(c.conv.ToKey(path))
}

// RecordCompiled stores the snapshot of a successfully compiled file.
func (c *Cache) RecordCompiled(path string, snapshot domain.InputSnapshot) error {
	return c.snapshots.Put(c.conv.ToKey(path), snapshot)
}

// Remove forgets the file and notifies every removal listener.
// All listeners run even when one fails.
func (c *Cache) Remove(path string) error {
	key := c.conv.ToKey(path)
	if err := c.snapshots.Remove(key); err != nil {
		return err
	}

	c.mu.RLock()
	listeners := slices.Clone(c.listeners)
	c.mu.RUnlock()

	var errs []error
	for _, fn := range listeners {
		if err := fn(key); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return zerr.With(zerr.Wrap(errors.Join(errs...), "failed to remove source from dependent caches"), "source", key.String())
	}
	return nil
}

// Sources returns the keys of every recorded file.
func (c *Cache) Sources() ([]domain.PathKey, error) {
	return c.snapshots.Keys()
}

// Classify compares the current project files with the recorded snapshots.
// Files are fingerprinted concurrently. Every list of the result is sorted.
func (c *Cache) Classify(ctx context.Context, files []string) (domain.ChangeSet, error) {
	type verdict uint8
	const (
		unchanged verdict = iota
		added
		modified
	)

	verdicts := make([]verdict, len(files))
	current := make(map[domain.PathKey]struct{}, len(files))
	for _, f := range files {
		current[c.conv.ToKey(f)] = struct{}{}
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, path := range files {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			_, known, err := c.snapshots.Get(c.conv.ToKey(path))
			if err != nil {
				return err
			}
			if !known {
				verdicts[i] = added
				return nil
			}
			changed, err := c.IsChanged(path)
			if err != nil {
				return err
			}
			if changed {
				verdicts[i] = modified
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.ChangeSet{}, err
	}

	var cs domain.ChangeSet
	for i, path := range files {
		switch verdicts[i] {
		case added:
			cs.Added = append(cs.Added, path)
		case modified:
			cs.Modified = append(cs.Modified, path)
		default:
			cs.Unchanged = append(cs.Unchanged, path)
		}
	}

	known, err := c.snapshots.Keys()
	if err != nil {
		return domain.ChangeSet{}, err
	}
	for _, key := range known {
		if _, ok := current[key]; !ok {
			cs.Removed = append(cs.Removed, c.conv.ToAbsolute(key))
		}
	}

	slices.Sort(cs.Added)
	slices.Sort(cs.Modified)
	slices.Sort(cs.Removed)
	slices.Sort(cs.Unchanged)
	return cs, nil
}
