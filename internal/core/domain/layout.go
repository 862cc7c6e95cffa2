package domain

import "path/filepath"

const (
	// IncrDirName is the name of the internal project directory.
	IncrDirName = ".incr"

	// CachesDirName is the name of the default cache root below IncrDirName.
	CachesDirName = "caches"

	// InputsDirName is the name of the inputs cache directory inside a cache root.
	InputsDirName = "inputs"

	// LookupsDirName is the name of the lookup cache directory inside a cache root.
	LookupsDirName = "lookups"

	// CleanCloseName is the marker file a cache root holds while no session has it open.
	CleanCloseName = "clean-close"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "incr.yaml"

	// SourceToOutputsName is the store name of the per-platform output manifest.
	SourceToOutputsName = "source-to-outputs"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultCacheRoot returns the default cache root for a project.
// It joins the project root, .incr and caches.
func DefaultCacheRoot(projectRoot string) string {
	return filepath.Join(projectRoot, IncrDirName, CachesDirName)
}

// InputsDir returns the inputs cache directory of a cache root.
func InputsDir(cacheRoot string) string {
	return filepath.Join(cacheRoot, InputsDirName)
}

// LookupsDir returns the lookup cache directory of a cache root.
func LookupsDir(cacheRoot string) string {
	return filepath.Join(cacheRoot, LookupsDirName)
}

// PlatformDir returns the platform cache directory of a cache root.
func PlatformDir(cacheRoot string, p Platform) string {
	return filepath.Join(cacheRoot, string(p))
}

// CleanCloseMarker returns the clean close marker of a cache root.
func CleanCloseMarker(cacheRoot string) string {
	return filepath.Join(cacheRoot, CleanCloseName)
}

// CacheDirs returns every cache directory a cache root may hold.
func CacheDirs(cacheRoot string) []string {
	return []string{
		InputsDir(cacheRoot),
		LookupsDir(cacheRoot),
		PlatformDir(cacheRoot, PlatformJVM),
		PlatformDir(cacheRoot, PlatformJS),
	}
}
