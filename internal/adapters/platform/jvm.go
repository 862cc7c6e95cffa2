package platform

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

// JVMPackager tracks class files relative to the compiler's output directory.
type JVMPackager struct {
	outputDir string
}

// NewJVMPackager creates a packager for outputDir.
func NewJVMPackager(outputDir string) (*JVMPackager, error) {
	if outputDir == "" {
		return nil, zerr.Wrap(domain.ErrMissingOutputDir, "open jvm cache")
	}
	return &JVMPackager{outputDir: filepath.Clean(outputDir)}, nil
}

// NewJVM opens the platform cache of the JVM target.
func NewJVM(open kvstore.Factory, outputDir string) (*Cache, error) {
	pkg, err := NewJVMPackager(outputDir)
	if err != nil {
		return nil, err
	}
	return New(open, pkg)
}

// Platform returns domain.PlatformJVM.
func (p *JVMPackager) Platform() domain.Platform {
	return domain.PlatformJVM
}

// OutputDir returns the class output directory.
func (p *JVMPackager) OutputDir() string {
	return p.outputDir
}

// DeleteOutputs removes class files below the output directory.
func (p *JVMPackager) DeleteOutputs(outputs []string) error {
	return deleteFiles(p.outputDir, outputs)
}

// Forget is a no-op; the JVM target keeps no per-source data besides the record.
func (p *JVMPackager) Forget(domain.PathKey) error {
	return nil
}

// Caches returns nothing; the JVM target owns no extra stores.
func (p *JVMPackager) Caches() []ports.Cache {
	return nil
}

func deleteFiles(root string, outputs []string) error {
	for _, output := range outputs {
		path := filepath.FromSlash(output)
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, domain.ErrOutputDeleteFailed.Error()), "output", path)
		}
	}
	return nil
}
