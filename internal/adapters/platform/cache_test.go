package platform_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/adapters/platform"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
)

func factory(t *testing.T, dir string) kvstore.Factory {
	t.Helper()
	return kvstore.Opener(kvstore.OpenBackend).In(domain.BackendSQLite, dir)
}

func closeAll(t *testing.T, caches []ports.Cache) {
	t.Helper()
	for _, c := range caches {
		require.NoError(t, c.Flush(false))
		require.NoError(t, c.Close())
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("bytes"), 0o600))
}

func TestJVM_RecordDeletesDroppedOutputs(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "classes")
	touch(t, filepath.Join(out, "a", "A.class"))
	touch(t, filepath.Join(out, "a", "A$1.class"))

	cache, err := platform.NewJVM(factory(t, filepath.Join(root, "jvm")), out)
	require.NoError(t, err)
	t.Cleanup(func() { closeAll(t, cache.Caches()) })
	assert.Equal(t, domain.PlatformJVM, cache.Platform())

	_, err = cache.Record("a/A.kt", domain.OutputRecord{Outputs: []string{"a/A.class", "a/A$1.class"}})
	require.NoError(t, err)

	_, err = cache.Record("a/A.kt", domain.OutputRecord{Outputs: []string{"a/A.class"}})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "a", "A.class"))
	assert.NoFileExists(t, filepath.Join(out, "a", "A$1.class"))

	record, ok, err := cache.Get("a/A.kt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a/A.class"}, record.Outputs)
}

func TestCache_RecordReturnsABIDiff(t *testing.T) {
	root := t.TempDir()
	cache, err := platform.NewJVM(factory(t, filepath.Join(root, "jvm")), filepath.Join(root, "classes"))
	require.NoError(t, err)
	t.Cleanup(func() { closeAll(t, cache.Caches()) })

	diff, err := cache.Record("A.kt", domain.OutputRecord{ABI: map[string]string{"p:f": "1", "p:g": "1"}})
	require.NoError(t, err)
	assert.Len(t, diff.Added, 2)

	diff, err = cache.Record("A.kt", domain.OutputRecord{ABI: map[string]string{"p:f": "1", "p:g": "2"}})
	require.NoError(t, err)
	assert.Equal(t, domain.ABIDiff{Changed: []domain.LookupSymbol{{Scope: "p", Name: "g"}}}, diff)

	diff, err = cache.Record("A.kt", domain.OutputRecord{ABI: map[string]string{"p:f": "1", "p:g": "2"}})
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty(), "body-only change keeps the ABI")
}

func TestCache_RemoveOutputs(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "classes")
	touch(t, filepath.Join(out, "B.class"))

	cache, err := platform.NewJVM(factory(t, filepath.Join(root, "jvm")), out)
	require.NoError(t, err)
	t.Cleanup(func() { closeAll(t, cache.Caches()) })

	_, err = cache.Record("B.kt", domain.OutputRecord{Outputs: []string{"B.class"}})
	require.NoError(t, err)
	require.NoError(t, cache.RemoveOutputs("B.kt"))

	assert.NoFileExists(t, filepath.Join(out, "B.class"))
	_, ok, err := cache.Get("B.kt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.RemoveOutputs("never.kt"))
}

func TestCache_SourceToOutputs(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "jvm")

	cache, err := platform.NewJVM(factory(t, dir), filepath.Join(root, "classes"))
	require.NoError(t, err)
	_, err = cache.Record("b/B.kt", domain.OutputRecord{Outputs: []string{"b/B.class", "b/B$Companion.class", "b/B.class"}})
	require.NoError(t, err)
	_, err = cache.Record("a/A.kt", domain.OutputRecord{Outputs: []string{"a/A.class"}})
	require.NoError(t, err)
	closeAll(t, cache.Caches())

	reopened, err := platform.NewJVM(factory(t, dir), filepath.Join(root, "classes"))
	require.NoError(t, err)
	t.Cleanup(func() { closeAll(t, reopened.Caches()) })

	manifest, err := reopened.SourceToOutputs()
	require.NoError(t, err)
	assert.Equal(t, map[domain.PathKey][]string{
		"a/A.kt": {"a/A.class"},
		"b/B.kt": {"b/B$Companion.class", "b/B.class"},
	}, manifest)
}

func TestNewJVM_RequiresOutputDir(t *testing.T) {
	_, err := platform.NewJVM(factory(t, t.TempDir()), "")
	assert.True(t, errors.Is(err, domain.ErrMissingOutputDir))
}

func TestJS_Metadata(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "js")
	touch(t, filepath.Join(out, "main.js"))

	cache, err := platform.NewJS(factory(t, filepath.Join(root, ".incr", "js")), out)
	require.NoError(t, err)
	t.Cleanup(func() { closeAll(t, cache.Caches()) })

	assert.Equal(t, domain.PlatformJS, cache.Platform())
	assert.Len(t, cache.Caches(), 2)

	_, err = cache.Record("main.kt", domain.OutputRecord{Outputs: []string{"main.js"}})
	require.NoError(t, err)
	require.NoError(t, cache.SetMetadata("main.kt", []byte{0xCA, 0xFE}))

	header, ok, err := cache.Metadata("main.kt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0xCA, 0xFE}, header)

	require.NoError(t, cache.RemoveOutputs("main.kt"))
	_, ok, err = cache.Metadata("main.kt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, filepath.Join(out, "main.js"))
}

func TestOpen(t *testing.T) {
	root := t.TempDir()

	jvm, err := platform.Open(domain.Options{Platform: domain.PlatformJVM, OutputDir: root}, factory(t, filepath.Join(root, "jvm")))
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformJVM, jvm.Platform())
	closeAll(t, jvm.Caches())

	js, err := platform.Open(domain.Options{Platform: domain.PlatformJS}, factory(t, filepath.Join(root, "js")))
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformJS, js.Platform())
	closeAll(t, js.Caches())

	_, err = platform.Open(domain.Options{Platform: "native"}, factory(t, root))
	assert.True(t, errors.Is(err, domain.ErrUnknownPlatform))
}
