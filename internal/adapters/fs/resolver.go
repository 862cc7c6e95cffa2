package fs

import (
	"path/filepath"
	"slices"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/zerr"
)

// Resolver expands output patterns reported for a compiled source.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveOutputs resolves glob patterns below root to sorted, unique, slash separated
// paths relative to root. A pattern without matches is an error.
func (r *Resolver) ResolveOutputs(patterns []string, root string) ([]string, error) {
	unique := make(map[string]struct{})

	for _, pattern := range patterns {
		path := pattern
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, pattern)
		}

		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrOutputGlobFailed.Error()), "pattern", pattern)
		}
		if len(matches) == 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrOutputNotFound, "no match"), "pattern", pattern)
		}

		for _, match := range matches {
			rel, err := filepath.Rel(root, match)
			if err != nil {
				rel = match
			}
			unique[filepath.ToSlash(rel)] = struct{}{}
		}
	}

	result := make([]string, 0, len(unique))
	for path := range unique {
		result = append(result, path)
	}
	slices.Sort(result)
	return result, nil
}
