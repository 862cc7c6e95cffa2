package platform

import (
	"path/filepath"
	"slices"

	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
)

// ModuleMetadataName is the store of serialized per-source module headers.
const ModuleMetadataName = "module-metadata"

// JSPackager tracks JavaScript module files and the serialized metadata of each source.
type JSPackager struct {
	outputDir string
	metadata  *kvstore.Store[domain.PathKey, []byte]
}

// NewJSPackager opens the module metadata store through open.
// Relative outputs resolve against outputDir.
func NewJSPackager(open kvstore.Factory, outputDir string) (*JSPackager, error) {
	backend, err := open(ModuleMetadataName)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		outputDir = filepath.Clean(outputDir)
	}
	return &JSPackager{
		outputDir: outputDir,
		metadata:  kvstore.Open(ModuleMetadataName, backend, kvstore.PathKeys(), kvstore.Bytes()),
	}, nil
}

// JSCache is the platform cache of the JS target.
type JSCache struct {
	*Cache
	pkg *JSPackager
}

// NewJS opens the platform cache of the JS target.
func NewJS(open kvstore.Factory, outputDir string) (*JSCache, error) {
	pkg, err := NewJSPackager(open, outputDir)
	if err != nil {
		return nil, err
	}
	c, err := New(open, pkg)
	if err != nil {
		_ = pkg.metadata.Close()
		return nil, err
	}
	return &JSCache{Cache: c, pkg: pkg}, nil
}

// SetMetadata stores the serialized module header of a source.
func (c *JSCache) SetMetadata(key domain.PathKey, header []byte) error {
	return c.pkg.metadata.Put(key, slices.Clone(header))
}

// Metadata returns the serialized module header of a source.
func (c *JSCache) Metadata(key domain.PathKey) ([]byte, bool, error) {
	header, ok, err := c.pkg.metadata.Get(key)
	return slices.Clone(header), ok, err
}

// Platform returns domain.PlatformJS.
func (p *JSPackager) Platform() domain.Platform {
	return domain.PlatformJS
}

// DeleteOutputs removes module files.
func (p *JSPackager) DeleteOutputs(outputs []string) error {
	return deleteFiles(p.outputDir, outputs)
}

// Forget drops the module metadata of a removed source.
func (p *JSPackager) Forget(key domain.PathKey) error {
	return p.metadata.Remove(key)
}

// Caches returns the module metadata store.
func (p *JSPackager) Caches() []ports.Cache {
	return []ports.Cache{p.metadata}
}
