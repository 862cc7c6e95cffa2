// Package platform records the outputs and declared ABI of each compiled source for one target platform.
package platform

import (
	"maps"
	"slices"

	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
)

// Packager owns the platform specific part of a platform cache.
type Packager interface {
	// Platform names the target platform.
	Platform() domain.Platform
	// DeleteOutputs deletes generated artifacts. Missing artifacts are ignored.
	DeleteOutputs(outputs []string) error
	// Forget drops platform specific data kept for a removed source.
	Forget(key domain.PathKey) error
	// Caches returns the stores the packager owns.
	Caches() []ports.Cache
}

var _ ports.PlatformCache = (*Cache)(nil)

// Cache implements ports.PlatformCache on top of a source-to-outputs store.
type Cache struct {
	packager Packager
	records  *kvstore.Store[domain.PathKey, domain.OutputRecord]
}

// New opens the source-to-outputs store through open and composes it with packager.
func New(open kvstore.Factory, packager Packager) (*Cache, error) {
	backend, err := open(domain.SourceToOutputsName)
	if err != nil {
		return nil, err
	}
	return &Cache{
		packager: packager,
		records:  kvstore.Open(domain.SourceToOutputsName, backend, kvstore.PathKeys(), kvstore.JSON[domain.OutputRecord]()),
	}, nil
}

// Platform names the target platform.
func (c *Cache) Platform() domain.Platform {
	return c.packager.Platform()
}

// Caches returns the source-to-outputs store followed by the packager's stores.
func (c *Cache) Caches() []ports.Cache {
	return append([]ports.Cache{c.records}, c.packager.Caches()...)
}

// Record stores the output record of a compiled source. Outputs the source no
// longer produces are deleted. The returned diff lists the declared symbols whose
// signature changed since the previous record.
func (c *Cache) Record(key domain.PathKey, record domain.OutputRecord) (domain.ABIDiff, error) {
	previous, _, err := c.records.Get(key)
	if err != nil {
		return domain.ABIDiff{}, err
	}

	record = normalize(record)
	if err := c.records.Put(key, record); err != nil {
		return domain.ABIDiff{}, err
	}
	if err := c.packager.DeleteOutputs(domain.DroppedOutputs(previous, record)); err != nil {
		return domain.ABIDiff{}, err
	}
	return domain.DiffABI(previous, record), nil
}

// Get returns the output record of a source.
func (c *Cache) Get(key domain.PathKey) (domain.OutputRecord, bool, error) {
	return c.records.Get(key)
}

// RemoveOutputs deletes the outputs of a removed source and forgets it.
func (c *Cache) RemoveOutputs(key domain.PathKey) error {
	record, ok, err := c.records.Get(key)
	if err != nil {
		return err
	}
	if ok {
		if err := c.packager.DeleteOutputs(record.Outputs); err != nil {
			return err
		}
		if err := c.records.Remove(key); err != nil {
			return err
		}
	}
	return c.packager.Forget(key)
}

// SourceToOutputs returns the outputs of every recorded source.
func (c *Cache) SourceToOutputs() (map[domain.PathKey][]string, error) {
	keys, err := c.records.Keys()
	if err != nil {
		return nil, err
	}

	manifest := make(map[domain.PathKey][]string, len(keys))
	for _, key := range keys {
		record, ok, err := c.records.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			manifest[key] = slices.Clone(record.Outputs)
		}
	}
	return manifest, nil
}

func normalize(r domain.OutputRecord) domain.OutputRecord {
	out := domain.OutputRecord{Outputs: slices.Compact(slices.Sorted(slices.Values(r.Outputs)))}
	if len(r.ABI) > 0 {
		out.ABI = maps.Clone(r.ABI)
	}
	return out
}
