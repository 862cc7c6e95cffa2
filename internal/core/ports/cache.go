package ports

import "go.trai.ch/incr/internal/core/domain"

// Cache is the lifecycle capability every store owned by the cache manager exposes.
//
//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type Cache interface {
	// Name identifies the cache in logs and errors.
	Name() string

	// Flush writes in-memory mutations to the durable tier.
	// With memoryCachesOnly set it only consolidates in-memory state.
	Flush(memoryCachesOnly bool) error

	// Close releases file handles. Every later operation fails.
	Close() error
}

// PlatformCache records which outputs each source produced for one target platform.
type PlatformCache interface {
	// Platform names the target platform.
	Platform() domain.Platform

	// Caches returns every store the platform cache owns, for registration with the manager.
	Caches() []Cache

	// Record stores the output record of a compiled source and returns the ABI diff
	// against the previous record. Outputs no longer produced are deleted.
	Record(path domain.PathKey, record domain.OutputRecord) (domain.ABIDiff, error)

	// Get returns the output record of a source, if any.
	Get(path domain.PathKey) (domain.OutputRecord, bool, error)

	// RemoveOutputs deletes the outputs of a removed source and forgets its record.
	RemoveOutputs(path domain.PathKey) error

	// SourceToOutputs returns the output manifest keyed by source, for diagnostics.
	SourceToOutputs() (map[domain.PathKey][]string, error)
}
