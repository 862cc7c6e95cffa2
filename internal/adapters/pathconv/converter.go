// Package pathconv maps absolute source paths to portable cache keys and back.
package pathconv

import (
	"path/filepath"
	"strings"

	"go.trai.ch/incr/internal/core/domain"
)

// Converter turns absolute paths into domain.PathKey values anchored at a project root.
// Paths beneath the root become slash separated relative keys so that a cache can be
// moved together with its project. Everything else keeps an absolute key.
type Converter struct {
	root string
}

// New creates a Converter for projectRoot. An empty root yields absolute keys only.
func New(projectRoot string) *Converter {
	if projectRoot == "" {
		return &Converter{}
	}
	return &Converter{root: absClean(projectRoot)}
}

// Root returns the cleaned absolute project root, or "" when none was given.
func (c *Converter) Root() string {
	return c.root
}

// ToKey returns the cache key of path. Relative input is resolved against the working directory.
func (c *Converter) ToKey(path string) domain.PathKey {
	abs := absClean(path)
	if c.root != "" {
		if rel, ok := c.relative(abs); ok {
			return domain.PathKey(filepath.ToSlash(rel))
		}
	}
	return domain.PathKey(filepath.ToSlash(abs))
}

// ToAbsolute is the inverse of ToKey.
func (c *Converter) ToAbsolute(key domain.PathKey) string {
	native := filepath.FromSlash(key.String())
	if key.IsRelative() && c.root != "" {
		return filepath.Join(c.root, native)
	}
	return native
}

func (c *Converter) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(c.root, abs)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func absClean(path string) string {
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return filepath.Clean(path)
}
