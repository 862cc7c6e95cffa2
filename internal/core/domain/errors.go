package domain

import "go.trai.ch/zerr"

var (
	// ErrAlreadyClosed is returned when the cache manager is used after Close.
	ErrAlreadyClosed = zerr.New("this cache storage has already been closed")

	// ErrStoreClosed is returned when a persistent store is used after Close.
	ErrStoreClosed = zerr.New("store is closed")

	// ErrStoreIO is the category of every durable tier failure.
	ErrStoreIO = zerr.New("store i/o failure")

	// ErrCompositeClose is the category of an aggregate close failure.
	ErrCompositeClose = zerr.New("failed to close incremental caches")

	// ErrCacheCorrupted is returned when durable cache data cannot be decoded.
	ErrCacheCorrupted = zerr.New("cache data is corrupted")

	// ErrStoreCreateFailed is returned when a store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create cache directory")

	// ErrStoreReadFailed is returned when a value cannot be read from the durable tier.
	ErrStoreReadFailed = zerr.New("failed to read cache entry")

	// ErrStoreWriteFailed is returned when a value cannot be written to the durable tier.
	ErrStoreWriteFailed = zerr.New("failed to write cache entry")

	// ErrStoreMarshalFailed is returned when a value cannot be encoded.
	ErrStoreMarshalFailed = zerr.New("failed to marshal cache entry")

	// ErrUnknownBackend is returned when the configured storage backend is not supported.
	ErrUnknownBackend = zerr.New("unknown storage backend, expected 'sqlite' or 'files'")

	// ErrUnknownPlatform is returned when the configured target platform is not supported.
	ErrUnknownPlatform = zerr.New("unknown platform, expected 'jvm' or 'js'")

	// ErrMissingOutputDir is returned when the JVM platform is used without an output directory.
	ErrMissingOutputDir = zerr.New("jvm platform requires an output directory")

	// ErrInvalidSymbol is returned when a lookup symbol cannot be parsed.
	ErrInvalidSymbol = zerr.New("invalid lookup symbol, expected scope:name")

	// ErrInvalidABIEntry is returned when an ABI entry cannot be parsed.
	ErrInvalidABIEntry = zerr.New("invalid abi entry, expected scope:name=signature")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrPathStatFailed is returned when stating a path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrOutputDeleteFailed is returned when a stale output artifact cannot be deleted.
	ErrOutputDeleteFailed = zerr.New("failed to delete output artifact")

	// ErrOutputNotFound is returned when an output pattern matches no file.
	ErrOutputNotFound = zerr.New("output not found")

	// ErrOutputGlobFailed is returned when an output pattern is malformed.
	ErrOutputGlobFailed = zerr.New("failed to glob output pattern")

	// ErrMetadataRequiresJS is returned when module metadata is recorded for a non-js platform.
	ErrMetadataRequiresJS = zerr.New("module metadata requires the js platform")

	// ErrNotUpToDate is returned by a status check when sources need to be compiled.
	ErrNotUpToDate = zerr.New("sources are not up to date")

	// ErrWalkFailed is returned when the project tree cannot be walked.
	ErrWalkFailed = zerr.New("failed to walk project sources")
)
