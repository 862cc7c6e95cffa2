package fs_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/core/domain"
)

func TestResolver_ResolveOutputs(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a", "A.class"), "a")
	writeFile(t, filepath.Join(tmpDir, "a", "A$Inner.class"), "i")
	writeFile(t, filepath.Join(tmpDir, "b", "B.class"), "b")

	resolver := fs.NewResolver()

	resolved, err := resolver.ResolveOutputs([]string{"a/*.class", "b/B.class", "a/A.class"}, tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/A$Inner.class", "a/A.class", "b/B.class"}, resolved)
}

func TestResolver_ResolveOutputs_Absolute(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "x", "X.class"), "x")

	resolved, err := fs.NewResolver().ResolveOutputs([]string{filepath.Join(tmpDir, "x", "X.class")}, tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"x/X.class"}, resolved)
}

func TestResolver_ResolveOutputs_GlobError(t *testing.T) {
	_, err := fs.NewResolver().ResolveOutputs([]string{"["}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to glob output pattern")
}

func TestResolver_ResolveOutputs_NoMatches(t *testing.T) {
	_, err := fs.NewResolver().ResolveOutputs([]string{"*.nonexistent"}, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOutputNotFound))
}
