package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/config"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func createFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.PrivateFilePerm))
	return path
}

func TestLoader_Load_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	dir := t.TempDir()
	opts, err := loader.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultOptions(dir), opts)
}

func TestLoader_Load_FullFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, `
version: "1"
root: src
cacheDir: build/caches
outputDir: /abs/classes
platform: JS
backend: files
storeFullyQualifiedNames: true
trackLookupChanges: true
sources: [kt, .java, kt]
ignore: [generated, "*.tmp"]
`)

	opts, err := loader.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "src"), opts.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "build", "caches"), opts.CacheRoot)
	assert.Equal(t, "/abs/classes", opts.OutputDir)
	assert.Equal(t, domain.PlatformJS, opts.Platform)
	assert.Equal(t, domain.BackendFiles, opts.Backend)
	assert.True(t, opts.StoreFullyQualifiedNames)
	assert.True(t, opts.TrackLookupChanges)
	assert.Equal(t, []string{".java", ".kt"}, opts.SourceExtensions)
	assert.Equal(t, []string{"*.tmp", "generated"}, opts.Ignores)
}

func TestLoader_Load_WalksUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, "outputDir: out\n")
	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))

	opts, err := loader.Load(nested)
	require.NoError(t, err)

	assert.Equal(t, dir, opts.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "out"), opts.OutputDir)
	assert.Equal(t, domain.DefaultCacheRoot(dir), opts.CacheRoot)
	assert.Equal(t, domain.PlatformJVM, opts.Platform)
	assert.Equal(t, domain.BackendSQLite, opts.Backend)
}

func TestLoader_Load_NearestFileWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	dir := t.TempDir()
	createFile(t, dir, domain.ConfigFileName, "backend: files\n")
	createFile(t, dir, filepath.Join("sub", domain.ConfigFileName), "backend: sqlite\n")

	opts, err := loader.Load(filepath.Join(dir, "sub"))
	require.NoError(t, err)
	assert.Equal(t, domain.BackendSQLite, opts.Backend)
	assert.Equal(t, filepath.Join(dir, "sub"), opts.ProjectRoot)
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))
	dir := t.TempDir()

	_, err := loader.LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), domain.ErrConfigReadFailed.Error())

	bad := createFile(t, dir, "bad.yaml", "backend: [unclosed\n")
	_, err = loader.LoadFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigParseFailed.Error())

	unknown := createFile(t, dir, "unknown.yaml", "backend: leveldb\n")
	_, err = loader.LoadFile(unknown)
	assert.True(t, errors.Is(err, domain.ErrUnknownBackend))

	platform := createFile(t, dir, "platform.yaml", "platform: wasm\n")
	_, err = loader.LoadFile(platform)
	assert.True(t, errors.Is(err, domain.ErrUnknownPlatform))
}

func TestLoader_LoadFile_WarnsOnUnknownVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(`unknown incr.yaml version "2", reading it as version 1`).Times(1)

	loader := config.NewLoader(mockLogger)
	path := createFile(t, t.TempDir(), "incr.yaml", "version: \"2\"\n")

	_, err := loader.LoadFile(path)
	require.NoError(t, err)
}
