// Package fs provides file system adapters for walking and fingerprinting project sources.
package fs

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/zerr"
)

var skipDirs = map[string]struct{}{
	".git":             {},
	".jj":              {},
	".hg":              {},
	".svn":             {},
	domain.IncrDirName: {},
	"node_modules":     {},
}

// Walker lists project sources.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields the absolute path of every file below root.
// VCS metadata, the cache directory, paths matched by root/.gitignore and
// names matching one of ignores are skipped.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[string] {
	gi := loadGitignore(root)
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}

			if skip, action := w.skip(root, path, d, gi, ignores); skip {
				return action
			}
			if d.IsDir() || d.Type()&os.ModeSymlink != 0 {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Sources returns the sorted absolute paths of every file below root whose
// extension is listed in extensions. An empty list accepts every extension.
func (w *Walker) Sources(root string, extensions, ignores []string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrWalkFailed.Error()), "root", root)
	}

	var files []string
	for path := range w.WalkFiles(root, ignores) {
		if len(extensions) > 0 && !slices.Contains(extensions, filepath.Ext(path)) {
			continue
		}
		files = append(files, path)
	}
	slices.Sort(files)
	return files, nil
}

// skip reports whether the entry is excluded, with the action WalkDir should take.
func (w *Walker) skip(root, path string, d fs.DirEntry, gi *ignore.GitIgnore, ignores []string) (bool, error) {
	name := d.Name()
	action := error(nil)
	if d.IsDir() {
		action = filepath.SkipDir
		if _, ok := skipDirs[name]; ok {
			return true, action
		}
	}

	for _, pattern := range ignores {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true, action
		}
	}

	if gi != nil {
		rel, err := filepath.Rel(root, path)
		if err == nil && beneath(rel) && gi.MatchesPath(filepath.ToSlash(rel)) {
			return true, action
		}
	}
	return false, nil
}

// SourceFilter answers for single paths whether Sources would list them.
type SourceFilter struct {
	root       string
	extensions []string
	ignores    []string
	gi         *ignore.GitIgnore
}

// Filter returns the filter Sources applies below root.
func (w *Walker) Filter(root string, extensions, ignores []string) *SourceFilter {
	return &SourceFilter{
		root:       root,
		extensions: extensions,
		ignores:    ignores,
		gi:         loadGitignore(root),
	}
}

// Matches reports whether path is a source file below the root. The path does
// not have to exist, so removed files are judged like listed ones.
func (f *SourceFilter) Matches(path string) bool {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || !beneath(rel) {
		return false
	}
	if len(f.extensions) > 0 && !slices.Contains(f.extensions, filepath.Ext(path)) {
		return false
	}

	elems := strings.Split(filepath.ToSlash(rel), "/")
	for i, name := range elems {
		if i < len(elems)-1 {
			if _, ok := skipDirs[name]; ok {
				return false
			}
		}
		for _, pattern := range f.ignores {
			if matched, _ := filepath.Match(pattern, name); matched {
				return false
			}
		}
		if f.gi != nil && f.gi.MatchesPath(strings.Join(elems[:i+1], "/")) {
			return false
		}
	}
	return true
}

// beneath reports whether a path relative to the root stays inside it.
func beneath(rel string) bool {
	if rel == "." || rel == "" || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
