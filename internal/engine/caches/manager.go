// Package caches owns the lifecycle of every incremental compilation cache of a build.
package caches

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"sync"

	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/adapters/inputs"
	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/adapters/lookup"
	"go.trai.ch/incr/internal/adapters/pathconv"
	"go.trai.ch/incr/internal/adapters/platform"
	"go.trai.ch/incr/internal/adapters/telemetry"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

// PlatformFactory opens the platform cache selected by opts inside its cache directory.
type PlatformFactory func(opts domain.Options, open kvstore.Factory) (ports.PlatformCache, error)

// Deps are the collaborators of a Manager. Nil fields get defaults.
type Deps struct {
	Logger   ports.Logger
	Tracer   ports.Tracer
	Hasher   ports.Fingerprinter
	Backends kvstore.Opener
	Platform PlatformFactory
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = discardLogger{}
	}
	if d.Tracer == nil {
		d.Tracer = telemetry.NewNoOpTracer()
	}
	if d.Hasher == nil {
		d.Hasher = fs.NewHasher()
	}
	if d.Backends == nil {
		d.Backends = kvstore.OpenBackend
	}
	if d.Platform == nil {
		d.Platform = platform.Open
	}
	return d
}

// Manager opens the inputs, lookup and platform caches of a cache root and
// closes them together. It moves from open to closed exactly once.
type Manager struct {
	opts   domain.Options
	logger ports.Logger
	tracer ports.Tracer

	conv     *pathconv.Converter
	inputs   *inputs.Cache
	lookups  *lookup.Storage
	platform ports.PlatformCache

	discarded bool

	mu     sync.Mutex
	stores []ports.Cache
	closed bool
}

// Open creates the cache directories below opts.CacheRoot and opens every cache.
// State left by a session that did not close cleanly is discarded first, so the
// caller sees an empty cache and rebuilds everything. The clean close marker is
// removed while the manager is open and written back by a successful Close.
func Open(opts domain.Options, deps Deps) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.CacheRoot == "" {
		opts.CacheRoot = domain.DefaultCacheRoot(opts.ProjectRoot)
	}
	deps = deps.withDefaults()

	discarded, err := discardUnclean(opts.CacheRoot)
	if err != nil {
		return nil, err
	}
	if discarded {
		deps.Logger.Warn(fmt.Sprintf("%s was not closed cleanly, discarding incremental caches", opts.CacheRoot))
	}

	inputsDir := domain.InputsDir(opts.CacheRoot)
	lookupsDir := domain.LookupsDir(opts.CacheRoot)
	platformDir := domain.PlatformDir(opts.CacheRoot, opts.Platform)
	for _, dir := range []string{inputsDir, lookupsDir, platformDir} {
		if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "dir", dir)
		}
	}

	m := &Manager{
		opts:      opts,
		logger:    deps.Logger,
		tracer:    deps.Tracer,
		conv:      pathconv.New(opts.ProjectRoot),
		discarded: discarded,
	}

	m.lookups, err = lookup.New(deps.Backends.In(opts.Backend, lookupsDir), m.conv, lookup.Options{
		StoreFullyQualifiedNames: opts.StoreFullyQualifiedNames,
		TrackChanges:             opts.TrackLookupChanges,
	})
	if err != nil {
		m.abandon()
		return nil, err
	}
	m.registerAll(m.lookups.Caches())

	m.platform, err = deps.Platform(opts, deps.Backends.In(opts.Backend, platformDir))
	if err != nil {
		m.abandon()
		return nil, err
	}
	m.registerAll(m.platform.Caches())

	// Inputs close last so a snapshot is never durable ahead of its lookups and outputs.
	inputsBackend, err := deps.Backends(opts.Backend, inputsDir, inputs.StoreName)
	if err != nil {
		m.abandon()
		return nil, err
	}
	m.inputs = inputs.New(inputsBackend, m.conv, deps.Hasher)
	m.registerAll(m.inputs.Caches())

	if err := os.Remove(domain.CleanCloseMarker(opts.CacheRoot)); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		m.abandon()
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", domain.CleanCloseMarker(opts.CacheRoot))
	}

	m.inputs.OnRemove(m.lookups.RemoveKey)
	m.inputs.OnRemove(m.platform.RemoveOutputs)
	return m, nil
}

// OpenJVM opens a manager whose platform cache tracks class files below opts.OutputDir.
func OpenJVM(opts domain.Options, deps Deps) (*Manager, error) {
	opts.Platform = domain.PlatformJVM
	return Open(opts, deps)
}

// OpenJS opens a manager whose platform cache tracks JavaScript modules.
func OpenJS(opts domain.Options, deps Deps) (*Manager, error) {
	opts.Platform = domain.PlatformJS
	return Open(opts, deps)
}

// discardUnclean removes the cache directories of a cache root that holds state
// but no clean close marker.
func discardUnclean(cacheRoot string) (bool, error) {
	if _, err := os.Stat(domain.CleanCloseMarker(cacheRoot)); err == nil {
		return false, nil
	} else if !errors.Is(err, iofs.ErrNotExist) {
		return false, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", domain.CleanCloseMarker(cacheRoot))
	}

	discarded := false
	for _, dir := range domain.CacheDirs(cacheRoot) {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, iofs.ErrNotExist) || (err == nil && len(entries) == 0) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return false, zerr.With(zerr.Wrap(err, "failed to discard unclean caches"), "dir", dir)
		}
		discarded = true
	}
	return discarded, nil
}

// Discarded reports whether Open dropped the state of a session that did not close cleanly.
func (m *Manager) Discarded() bool {
	return m.discarded
}

// Options returns the options the manager was opened with, defaults applied.
func (m *Manager) Options() domain.Options {
	return m.opts
}

// PathConverter returns the converter shared by every cache.
func (m *Manager) PathConverter() *pathconv.Converter {
	return m.conv
}

// Inputs returns the inputs cache.
func (m *Manager) Inputs() *inputs.Cache {
	return m.inputs
}

// Lookups returns the lookup storage.
func (m *Manager) Lookups() *lookup.Storage {
	return m.lookups
}

// Platform returns the platform cache.
func (m *Manager) Platform() ports.PlatformCache {
	return m.platform
}

// Register adds a store to the close list.
func (m *Manager) Register(cache ports.Cache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return zerr.With(zerr.Wrap(domain.ErrAlreadyClosed, "register cache"), "store", cache.Name())
	}
	m.stores = append(m.stores, cache)
	return nil
}

// Closed reports whether Close was called.
func (m *Manager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// RemoveSource forgets a deleted source in every cache and deletes its outputs.
func (m *Manager) RemoveSource(path string) error {
	if m.Closed() {
		return zerr.Wrap(domain.ErrAlreadyClosed, "remove source")
	}
	return m.inputs.Remove(path)
}

// Flush writes every registered store. With memoryCachesOnly set the stores only
// consolidate memory. All stores are flushed even when one fails.
func (m *Manager) Flush(memoryCachesOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return zerr.Wrap(domain.ErrAlreadyClosed, "flush caches")
	}

	var failures []error
	for _, store := range m.stores {
		if err := store.Flush(memoryCachesOnly); err != nil {
			failures = append(failures, zerr.With(zerr.Wrap(err, "flush failed"), "store", store.Name()))
		}
	}
	if len(failures) > 0 {
		return zerr.Wrap(errors.Join(failures...), "failed to flush incremental caches")
	}
	return nil
}

// Close is CloseContext with a background context.
func (m *Manager) Close() error {
	return m.CloseContext(context.Background())
}

// CloseContext fully flushes and then closes every registered store in registration
// order. A failing store does not stop the others. The manager is closed afterwards
// even when a store failed; the returned *domain.CompositeCloseError lists every failure.
// Only a close without failures writes the clean close marker.
// A second call fails with domain.ErrAlreadyClosed and touches no store.
func (m *Manager) CloseContext(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return zerr.Wrap(domain.ErrAlreadyClosed, "close caches")
	}

	ctx, span := m.tracer.Start(ctx, "caches.close",
		ports.WithAttribute("stores", len(m.stores)),
		ports.WithAttribute("cache_root", m.opts.CacheRoot),
	)
	defer span.End()

	var failures []error
	for _, store := range m.stores {
		failures = append(failures, m.closeStore(ctx, store)...)
	}
	m.closed = true

	if len(failures) == 0 {
		marker := domain.CleanCloseMarker(m.opts.CacheRoot)
		if err := os.WriteFile(marker, nil, domain.FilePerm); err != nil {
			failures = append(failures, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", marker))
		}
	}

	if len(failures) > 0 {
		err := &domain.CompositeCloseError{Failures: failures}
		span.RecordError(err)
		return err
	}
	return nil
}

func (m *Manager) closeStore(ctx context.Context, store ports.Cache) []error {
	_, span := m.tracer.Start(ctx, "store.close", ports.WithAttribute("store", store.Name()))
	defer span.End()

	var failures []error
	if err := store.Flush(false); err != nil {
		err = zerr.With(zerr.Wrap(err, "flush failed"), "store", store.Name())
		span.RecordError(err)
		failures = append(failures, err)
	}
	if err := store.Close(); err != nil {
		err = zerr.With(zerr.Wrap(err, "close failed"), "store", store.Name())
		span.RecordError(err)
		failures = append(failures, err)
	}
	return failures
}

func (m *Manager) registerAll(stores []ports.Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores = append(m.stores, stores...)
}

// abandon closes what a failed Open already opened, without flushing.
func (m *Manager) abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, store := range m.stores {
		_ = store.Close()
	}
	m.closed = true
}

type discardLogger struct{}

func (discardLogger) Info(string) {}
func (discardLogger) Warn(string) {}
func (discardLogger) Error(error) {}
