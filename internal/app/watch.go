package app

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/incr/internal/adapters/fs" //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/watcher"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/engine/caches"
	"go.trai.ch/incr/internal/engine/dirty"
	"go.trai.ch/zerr"
)

// Watch reports changed sources and their dependents until ctx is done.
// Changes are delivered in debounced batches; the caches are only read.
func (a *App) Watch(ctx context.Context, o Options) error {
	return a.withCaches(o, func(m *caches.Manager) error {
		root := m.Options().ProjectRoot
		w, err := a.watchers()
		if err != nil {
			return err
		}
		if err := w.Start(ctx, root); err != nil {
			_ = w.Stop()
			return err
		}
		a.logger.Info("watching " + root)
		opts := m.Options()
		filter := a.walker.Filter(root, opts.SourceExtensions, opts.Ignores)

		var (
			mu     sync.Mutex
			closed bool
		)
		d := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			if err := a.reportBatch(ctx, m, filter, paths); err != nil {
				a.logger.Error(err)
			}
		})

		for event := range w.Events() {
			d.Add(event.Path)
		}
		d.Flush()

		mu.Lock()
		closed = true
		mu.Unlock()

		if err := w.Stop(); err != nil {
			return zerr.Wrap(err, "failed to stop file watcher")
		}
		return nil
	})
}

// reportBatch classifies the changed paths that are project sources and prints
// them with their dependents.
func (a *App) reportBatch(ctx context.Context, m *caches.Manager, filter *fs.SourceFilter, paths []string) error {
	_, span := a.tracer.Start(ctx, "app.watch.batch")
	defer span.End()

	opts := m.Options()
	var report StatusReport
	for _, path := range paths {
		if !isSource(opts, filter, path) {
			continue
		}
		_, known, err := m.Inputs().Get(path)
		if err != nil {
			return err
		}

		info, err := os.Stat(path)
		switch {
		case errors.Is(err, iofs.ErrNotExist):
			if known {
				report.Changes.Removed = append(report.Changes.Removed, path)
			}
			continue
		case err != nil:
			return zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
		case info.IsDir():
			continue
		}

		if !known {
			report.Changes.Added = append(report.Changes.Added, path)
			continue
		}
		changed, err := m.Inputs().IsChanged(path)
		if err != nil {
			return err
		}
		if changed {
			report.Changes.Modified = append(report.Changes.Modified, path)
		}
	}
	if report.Changes.IsEmpty() {
		return nil
	}

	changed := slices.Concat(report.Changes.Modified, report.Changes.Removed)
	var err error
	report.Dependents, err = dirty.Dependents(m, changed, slices.Concat(report.Changes.Added, changed))
	if err != nil {
		return err
	}
	span.SetAttribute("changed", len(paths))

	printStatus(a.out, m, report)
	return nil
}

// isSource reports whether a changed path is a project source as the walker sees it.
func isSource(opts domain.Options, filter *fs.SourceFilter, path string) bool {
	if strings.HasPrefix(path, opts.CacheRoot+string(filepath.Separator)) {
		return false
	}
	return filter.Matches(path)
}
