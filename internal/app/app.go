// Package app implements the application layer for incr.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/adapters/watcher"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/caches"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	tracer       ports.Tracer
	hasher       ports.Fingerprinter
	walker       *fs.Walker
	resolver     *fs.Resolver
	verifier     *fs.Verifier
	watchers     watcher.Factory
	out          io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	logger ports.Logger,
	tracer ports.Tracer,
	hasher ports.Fingerprinter,
	walker *fs.Walker,
	resolver *fs.Resolver,
	verifier *fs.Verifier,
	watchers watcher.Factory,
) *App {
	return &App{
		configLoader: loader,
		logger:       logger,
		tracer:       tracer,
		hasher:       hasher,
		walker:       walker,
		resolver:     resolver,
		verifier:     verifier,
		watchers:     watchers,
		out:          os.Stdout,
	}
}

// WithOutput sets the writer command results are printed to.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// Options are the command line overrides of the configuration file.
// Empty fields keep the configured value.
type Options struct {
	// Cwd is where configuration discovery starts. Empty means the process working directory.
	Cwd         string
	ConfigPath  string
	ProjectRoot string
	CacheDir    string
	OutputDir   string
	Platform    string
	Backend     string
}

// ResolveOptions loads the configuration and applies the overrides.
func (a *App) ResolveOptions(o Options) (domain.Options, error) {
	cwd, err := workingDir(o)
	if err != nil {
		return domain.Options{}, err
	}

	var opts domain.Options
	if o.ConfigPath != "" {
		opts, err = a.configLoader.LoadFile(absolute(cwd, o.ConfigPath))
	} else {
		opts, err = a.configLoader.Load(cwd)
	}
	if err != nil {
		return domain.Options{}, zerr.Wrap(err, "failed to load configuration")
	}

	if o.ProjectRoot != "" {
		defaultCache := opts.CacheRoot == domain.DefaultCacheRoot(opts.ProjectRoot)
		opts.ProjectRoot = absolute(cwd, o.ProjectRoot)
		if defaultCache {
			opts.CacheRoot = domain.DefaultCacheRoot(opts.ProjectRoot)
		}
	}
	if o.CacheDir != "" {
		opts.CacheRoot = absolute(cwd, o.CacheDir)
	}
	if o.OutputDir != "" {
		opts.OutputDir = absolute(cwd, o.OutputDir)
	}
	if o.Platform != "" {
		opts.Platform = domain.Platform(o.Platform)
	}
	if o.Backend != "" {
		opts.Backend = domain.Backend(o.Backend)
	}

	if err := opts.Validate(); err != nil {
		return domain.Options{}, err
	}
	return opts, nil
}

// open resolves the options and opens the caches.
func (a *App) open(o Options) (*caches.Manager, error) {
	opts, err := a.ResolveOptions(o)
	if err != nil {
		return nil, err
	}
	return caches.Open(opts, caches.Deps{
		Logger: a.logger,
		Tracer: a.tracer,
		Hasher: a.hasher,
	})
}

// withCaches runs fn on an open manager and closes it afterwards.
// A close failure is reported together with the failure of fn.
func (a *App) withCaches(o Options, fn func(m *caches.Manager) error) error {
	m, err := a.open(o)
	if err != nil {
		return err
	}
	fnErr := fn(m)
	if closeErr := m.Close(); closeErr != nil {
		return errors.Join(fnErr, closeErr)
	}
	return fnErr
}

// Clean removes the cache root.
func (a *App) Clean(_ context.Context, o Options) error {
	opts, err := a.ResolveOptions(o)
	if err != nil {
		return err
	}

	a.logger.Info(fmt.Sprintf("removing %s...", opts.CacheRoot))
	if err := os.RemoveAll(opts.CacheRoot); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove caches"), "cache_root", opts.CacheRoot)
	}
	a.logger.Info(fmt.Sprintf("removed %s", opts.CacheRoot))
	return nil
}

// Dump logs the source-to-outputs manifest and returns it.
func (a *App) Dump(_ context.Context, o Options) (string, error) {
	var dump string
	err := a.withCaches(o, func(m *caches.Manager) error {
		var err error
		dump, err = m.ValidateSourceToClassesMap()
		return err
	})
	return dump, err
}

// HashSums logs the digests of every source-to-outputs file below the cache root.
// The caches are not opened, so the report reflects the files as they are on disk.
func (a *App) HashSums(_ context.Context, o Options, tag string) (string, error) {
	opts, err := a.ResolveOptions(o)
	if err != nil {
		return "", err
	}
	return caches.PrintHashSums(opts.CacheRoot, a.logger, tag)
}

// Lookup prints the files referencing symbol, given as scope:name.
func (a *App) Lookup(_ context.Context, o Options, symbol string) ([]string, error) {
	sym, err := domain.ParseLookupSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var files []string
	err = a.withCaches(o, func(m *caches.Manager) error {
		keys, err := m.Lookups().Get(sym)
		if err != nil {
			return err
		}
		for _, key := range keys {
			files = append(files, key.String())
			_, _ = fmt.Fprintln(a.out, key)
		}
		return nil
	})
	return files, err
}

func absolute(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
