package domain

import "go.trai.ch/zerr"

// Backend names a durable storage implementation.
type Backend string

const (
	// BackendSQLite keeps each store in its own SQLite database.
	BackendSQLite Backend = "sqlite"
	// BackendFiles keeps each entry of a store in its own JSON file.
	BackendFiles Backend = "files"
)

// Platform names a compilation target whose outputs are tracked.
type Platform string

const (
	// PlatformJVM tracks class files below an output directory.
	PlatformJVM Platform = "jvm"
	// PlatformJS tracks JavaScript module files and their serialized metadata.
	PlatformJS Platform = "js"
)

// Options configures a cache manager.
type Options struct {
	// CacheRoot is the directory holding one subdirectory per named cache.
	CacheRoot string
	// ProjectRoot anchors path keys. Empty means every key is an absolute fallback.
	ProjectRoot string
	// OutputDir is the class output directory of the JVM platform.
	OutputDir string
	// Platform selects the platform cache.
	Platform Platform
	// Backend selects the durable tier.
	Backend Backend
	// StoreFullyQualifiedNames keeps full symbol names in the lookup index instead of hashes.
	StoreFullyQualifiedNames bool
	// TrackLookupChanges records every symbol-to-file edge change of the session.
	TrackLookupChanges bool
	// SourceExtensions restricts project sources to these file extensions. Empty means every file.
	SourceExtensions []string
	// Ignores are extra file or directory name patterns excluded from project sources.
	Ignores []string
}

// DefaultOptions returns the options used when no configuration is present.
func DefaultOptions(projectRoot string) Options {
	return Options{
		CacheRoot:   DefaultCacheRoot(projectRoot),
		ProjectRoot: projectRoot,
		Platform:    PlatformJVM,
		Backend:     BackendSQLite,
	}
}

// Validate checks that the backend and platform are known.
func (o Options) Validate() error {
	switch o.Backend {
	case BackendSQLite, BackendFiles:
	default:
		return zerr.With(zerr.Wrap(ErrUnknownBackend, "invalid options"), "backend", string(o.Backend))
	}
	switch o.Platform {
	case PlatformJVM, PlatformJS:
	default:
		return zerr.With(zerr.Wrap(ErrUnknownPlatform, "invalid options"), "platform", string(o.Platform))
	}
	return nil
}
