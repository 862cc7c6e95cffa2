package pathconv_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/pathconv"
	"go.trai.ch/incr/internal/core/domain"
)

func TestConverter_ToKey(t *testing.T) {
	root := t.TempDir()
	c := pathconv.New(root)

	tests := []struct {
		name     string
		path     string
		want     domain.PathKey
		relative bool
	}{
		{name: "file at root", path: filepath.Join(root, "Main.kt"), want: "Main.kt", relative: true},
		{name: "nested file", path: filepath.Join(root, "src", "a", "B.kt"), want: "src/a/B.kt", relative: true},
		{name: "unclean path", path: filepath.Join(root, "src", "..", "src", "C.kt"), want: "src/C.kt", relative: true},
		{name: "dot-dot prefixed name", path: filepath.Join(root, "..hidden.kt"), want: "..hidden.kt", relative: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := c.ToKey(tt.path)
			assert.Equal(t, tt.want, key)
			assert.Equal(t, tt.relative, key.IsRelative())
		})
	}
}

func TestConverter_OutsideRootIsAbsolute(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "project")
	c := pathconv.New(root)

	outside := filepath.Join(parent, "other", "Lib.kt")
	key := c.ToKey(outside)

	assert.False(t, key.IsRelative())
	assert.Equal(t, domain.PathKey(filepath.ToSlash(outside)), key)
	assert.Equal(t, outside, c.ToAbsolute(key))

	// The root itself is not a file beneath the root.
	assert.False(t, c.ToKey(root).IsRelative())
}

func TestConverter_RoundTrip(t *testing.T) {
	root := t.TempDir()
	c := pathconv.New(root)

	paths := []string{
		filepath.Join(root, "a.kt"),
		filepath.Join(root, "src", "main", "kotlin", "App.kt"),
		filepath.Join(root, "with space", "x.js"),
	}
	if runtime.GOOS != "windows" {
		paths = append(paths, filepath.Join(root, "c:weird.kt"), filepath.Join(root, "d:", "nested.kt"))
	}
	for _, p := range paths {
		got := c.ToAbsolute(c.ToKey(p))
		assert.Equal(t, p, got)
	}
}

func TestConverter_EmptyRoot(t *testing.T) {
	c := pathconv.New("")
	assert.Empty(t, c.Root())

	abs, err := filepath.Abs(filepath.Join("testdata", "x.kt"))
	require.NoError(t, err)

	key := c.ToKey(abs)
	assert.False(t, key.IsRelative())
	assert.Equal(t, abs, c.ToAbsolute(key))
}

func TestConverter_Deterministic(t *testing.T) {
	root := t.TempDir()
	a := pathconv.New(root)
	b := pathconv.New(root + string(filepath.Separator))

	p := filepath.Join(root, "pkg", "File.kt")
	assert.Equal(t, a.ToKey(p), b.ToKey(p))
}
