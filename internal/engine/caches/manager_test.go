package caches_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/adapters/lookup"
	"go.trai.ch/incr/internal/adapters/telemetry"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/core/ports/mocks"
	"go.trai.ch/incr/internal/engine/caches"
	"go.uber.org/mock/gomock"
)

var (
	symFoo = domain.LookupSymbol{Scope: "com.example", Name: "foo"}
	symBar = domain.LookupSymbol{Scope: "com.example", Name: "bar"}
)

func newOptions(t *testing.T, backend domain.Backend) domain.Options {
	t.Helper()
	root := t.TempDir()
	return domain.Options{
		ProjectRoot: root,
		CacheRoot:   filepath.Join(root, ".incr", "caches"),
		OutputDir:   filepath.Join(root, "classes"),
		Platform:    domain.PlatformJVM,
		Backend:     backend,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// compile records a successful compilation of rel the way a compiler driver would.
func compile(t *testing.T, m *caches.Manager, rel string, refs []domain.LookupSymbol, outputs ...string) {
	t.Helper()
	opts := m.Options()
	path := filepath.Join(opts.ProjectRoot, rel)
	for _, o := range outputs {
		writeFile(t, filepath.Join(opts.OutputDir, o), "class bytes")
	}

	snap, err := m.Inputs().Snapshot(path)
	require.NoError(t, err)
	require.NoError(t, m.Inputs().RecordCompiled(path, snap))
	require.NoError(t, m.Lookups().ReplaceLookupsFrom(path, refs))
	_, err = m.Platform().Record(m.PathConverter().ToKey(path), domain.OutputRecord{Outputs: outputs})
	require.NoError(t, err)
}

func TestOpen_CreatesLayout(t *testing.T) {
	opts := newOptions(t, domain.BackendSQLite)

	m, err := caches.Open(opts, caches.Deps{})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.DirExists(t, filepath.Join(opts.CacheRoot, "inputs"))
	assert.DirExists(t, filepath.Join(opts.CacheRoot, "lookups"))
	assert.DirExists(t, filepath.Join(opts.CacheRoot, "jvm"))

	// Opening again over an existing layout is fine.
	m, err = caches.Open(opts, caches.Deps{})
	require.NoError(t, err)
	require.NoError(t, m.Close())
}

func TestOpen_DefaultsCacheRoot(t *testing.T) {
	opts := newOptions(t, domain.BackendSQLite)
	opts.CacheRoot = ""

	m, err := caches.OpenJS(opts, caches.Deps{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	assert.Equal(t, filepath.Join(opts.ProjectRoot, ".incr", "caches"), m.Options().CacheRoot)
	assert.Equal(t, domain.PlatformJS, m.Platform().Platform())
	assert.DirExists(t, filepath.Join(opts.ProjectRoot, ".incr", "caches", "js"))
}

func TestOpen_InvalidOptions(t *testing.T) {
	opts := newOptions(t, "leveldb")
	_, err := caches.Open(opts, caches.Deps{})
	assert.True(t, errors.Is(err, domain.ErrUnknownBackend))

	opts = newOptions(t, domain.BackendSQLite)
	opts.OutputDir = ""
	_, err = caches.OpenJVM(opts, caches.Deps{})
	assert.True(t, errors.Is(err, domain.ErrMissingOutputDir))
}

func TestManager_ReopenAfterCleanClose(t *testing.T) {
	for _, backend := range []domain.Backend{domain.BackendSQLite, domain.BackendFiles} {
		t.Run(string(backend), func(t *testing.T) {
			opts := newOptions(t, backend)
			writeFile(t, filepath.Join(opts.ProjectRoot, "A.kt"), "fun foo() = 1")

			m, err := caches.OpenJVM(opts, caches.Deps{})
			require.NoError(t, err)
			compile(t, m, "A.kt", []domain.LookupSymbol{symFoo}, "A.class")
			require.NoError(t, m.Close())
			assert.FileExists(t, domain.CleanCloseMarker(opts.CacheRoot))

			reopened, err := caches.OpenJVM(opts, caches.Deps{})
			require.NoError(t, err)
			t.Cleanup(func() { _ = reopened.Close() })
			assert.False(t, reopened.Discarded())
			assert.NoFileExists(t, domain.CleanCloseMarker(opts.CacheRoot))

			files, err := reopened.Lookups().Get(symFoo)
			require.NoError(t, err)
			assert.Equal(t, []domain.PathKey{"A.kt"}, files)

			changed, err := reopened.Inputs().IsChanged(filepath.Join(opts.ProjectRoot, "A.kt"))
			require.NoError(t, err)
			assert.False(t, changed)

			manifest, err := reopened.Platform().SourceToOutputs()
			require.NoError(t, err)
			assert.Equal(t, map[domain.PathKey][]string{"A.kt": {"A.class"}}, manifest)
		})
	}
}

func TestManager_RenameSymbolEndToEnd(t *testing.T) {
	opts := newOptions(t, domain.BackendSQLite)
	path := filepath.Join(opts.ProjectRoot, "A.kt")
	writeFile(t, path, "fun foo() = 1")

	m, err := caches.OpenJVM(opts, caches.Deps{})
	require.NoError(t, err)
	compile(t, m, "A.kt", []domain.LookupSymbol{symFoo}, "A.class")

	writeFile(t, path, "fun bar() = 1")
	changed, err := m.Inputs().IsChanged(path)
	require.NoError(t, err)
	assert.True(t, changed)

	compile(t, m, "A.kt", []domain.LookupSymbol{symBar}, "A.class")

	files, err := m.Lookups().Get(symFoo)
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = m.Lookups().Get(symBar)
	require.NoError(t, err)
	assert.Equal(t, []domain.PathKey{"A.kt"}, files)

	require.NoError(t, m.Close())
}

func TestManager_RemoveSource(t *testing.T) {
	opts := newOptions(t, domain.BackendSQLite)
	path := filepath.Join(opts.ProjectRoot, "src", "A.kt")
	writeFile(t, path, "fun foo() = 1")

	m, err := caches.OpenJVM(opts, caches.Deps{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	compile(t, m, "src/A.kt", []domain.LookupSymbol{symFoo, symBar}, "A.class", "A$1.class")
	require.NoError(t, os.Remove(path))

	require.NoError(t, m.RemoveSource(path))

	_, ok, err := m.Inputs().Get(path)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.Platform().Get("src/A.kt")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, sym := range []domain.LookupSymbol{symFoo, symBar} {
		files, err := m.Lookups().Get(sym)
		require.NoError(t, err)
		assert.Empty(t, files)
	}

	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "A.class"))
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "A$1.class"))
}

func TestManager_DoubleClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCache(ctrl)
	store.EXPECT().Name().Return("extra").AnyTimes()
	gomock.InOrder(
		store.EXPECT().Flush(false).Return(nil).Times(1),
		store.EXPECT().Close().Return(nil).Times(1),
	)

	m, err := caches.Open(newOptions(t, domain.BackendSQLite), caches.Deps{})
	require.NoError(t, err)
	require.NoError(t, m.Register(store))

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())

	err = m.Close()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyClosed))
	assert.Contains(t, err.Error(), "this cache storage has already been closed")

	assert.True(t, errors.Is(m.Register(store), domain.ErrAlreadyClosed))
	assert.True(t, errors.Is(m.Flush(true), domain.ErrAlreadyClosed))
	assert.True(t, errors.Is(m.RemoveSource("x.kt"), domain.ErrAlreadyClosed))
	_, err = m.ValidateSourceToClassesMap()
	assert.True(t, errors.Is(err, domain.ErrAlreadyClosed))
}

func TestManager_CloseAttemptsEveryStore(t *testing.T) {
	ctrl := gomock.NewController(t)

	flushErr := domain.NewStoreIOError("a", "flush", errors.New("disk full"))
	closeErr := domain.NewStoreIOError("a", "close", errors.New("bad file descriptor"))

	a := mocks.NewMockCache(ctrl)
	a.EXPECT().Name().Return("a").AnyTimes()
	b := mocks.NewMockCache(ctrl)
	b.EXPECT().Name().Return("b").AnyTimes()

	gomock.InOrder(
		a.EXPECT().Flush(false).Return(flushErr),
		a.EXPECT().Close().Return(closeErr),
		b.EXPECT().Flush(false).Return(nil),
		b.EXPECT().Close().Return(nil),
	)

	m, err := caches.Open(newOptions(t, domain.BackendSQLite), caches.Deps{})
	require.NoError(t, err)
	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(b))

	err = m.Close()
	require.Error(t, err)
	assert.True(t, m.Closed())

	var composite *domain.CompositeCloseError
	require.ErrorAs(t, err, &composite)
	assert.Len(t, composite.Failures, 2)
	assert.True(t, errors.Is(err, domain.ErrCompositeClose))
	assert.True(t, errors.Is(err, domain.ErrStoreIO))
	assert.True(t, errors.Is(err, flushErr))
	assert.True(t, errors.Is(err, closeErr))
	assert.Contains(t, err.Error(), "disk full")
	assert.NotContains(t, err.Error(), "store=b")

	// The second close fails fast and no store is touched again.
	assert.True(t, errors.Is(m.Close(), domain.ErrAlreadyClosed))
}

func TestManager_FlushKeepsManagerOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCache(ctrl)
	store.EXPECT().Name().Return("extra").AnyTimes()
	failure := errors.New("write failed")
	gomock.InOrder(
		store.EXPECT().Flush(true).Return(nil),
		store.EXPECT().Flush(false).Return(failure),
		store.EXPECT().Flush(false).Return(nil),
		store.EXPECT().Close().Return(nil),
	)

	m, err := caches.Open(newOptions(t, domain.BackendSQLite), caches.Deps{})
	require.NoError(t, err)
	require.NoError(t, m.Register(store))

	require.NoError(t, m.Flush(true))
	err = m.Flush(false)
	assert.True(t, errors.Is(err, failure))
	assert.False(t, m.Closed())

	require.NoError(t, m.Close())
}

func TestManager_ConcurrentRegisterAndClose(t *testing.T) {
	m, err := caches.Open(newOptions(t, domain.BackendSQLite), caches.Deps{})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 16 {
		store := mocks.NewMockCache(ctrl)
		store.EXPECT().Name().Return("worker").AnyTimes()
		store.EXPECT().Flush(false).Return(nil).MaxTimes(1)
		store.EXPECT().Close().Return(nil).MaxTimes(1)

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Register(store)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, domain.ErrAlreadyClosed))
		}()
	}

	require.NoError(t, m.Close())
	wg.Wait()
	assert.LessOrEqual(t, accepted, 16)
}

func TestManager_CloseTracesStores(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	m, err := caches.Open(newOptions(t, domain.BackendSQLite), caches.Deps{
		Tracer: telemetry.NewOTelTracerWithProvider(tp, "test"),
	})
	require.NoError(t, err)
	require.NoError(t, m.CloseContext(context.Background()))

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	var storeSpans int
	for _, s := range spans[:len(spans)-1] {
		assert.Equal(t, "store.close", s.Name())
		storeSpans++
	}
	assert.Equal(t, "caches.close", spans[len(spans)-1].Name())
	// inputs (1) + lookups (5) + jvm source-to-outputs (1)
	assert.Equal(t, 7, storeSpans)
}

func TestManager_ValidateSourceToClassesMap(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	opts := newOptions(t, domain.BackendSQLite)
	m, err := caches.OpenJVM(opts, caches.Deps{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	for _, rel := range []string{"a/A.kt", "b/B.kt", "c/C.kt"} {
		writeFile(t, filepath.Join(opts.ProjectRoot, rel), rel)
	}
	compile(t, m, "b/B.kt", nil, "b/B.class", "b/B$1.class")
	compile(t, m, "a/A.kt", nil, "a/A.class")
	compile(t, m, "c/C.kt", nil)

	var logged string
	logger.EXPECT().Warn(gomock.Any()).Do(func(msg string) { logged = msg })

	dump, err := m.ValidateSourceToClassesMap()
	require.NoError(t, err)
	assert.Equal(t, dump, logged)

	g := goldie.New(t)
	g.Assert(t, "source_to_classes_map", []byte(dump))
}

func TestFormatManifest_Empty(t *testing.T) {
	dump := caches.FormatManifest(nil)
	assert.Equal(t, "===== sourceToClassesMap contents =====\nPossibly valid: false\n======================================\n", dump)
}

func TestPrintHashSums(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).Times(2)

	opts := newOptions(t, domain.BackendFiles)
	m, err := caches.OpenJVM(opts, caches.Deps{Logger: logger})
	require.NoError(t, err)

	writeFile(t, filepath.Join(opts.ProjectRoot, "a/A.kt"), "a")
	writeFile(t, filepath.Join(opts.ProjectRoot, "b/B.kt"), "b")
	compile(t, m, "a/A.kt", nil, "a/A.class")
	compile(t, m, "b/B.kt", nil, "b/B.class")
	require.NoError(t, m.Close())

	report, err := caches.PrintHashSums(opts.CacheRoot, logger, "after-build")
	require.NoError(t, err)

	normalized := strings.ReplaceAll(report, opts.CacheRoot, "<cache-root>")
	g := goldie.New(t)
	g.Assert(t, "hash_sums", []byte(filepath.ToSlash(normalized)))

	// The manager method reports the same files.
	again, err := m.PrintHashSums("after-build")
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

var _ ports.Cache = (*mocks.MockCache)(nil)

// failingApply is a durable tier whose writes fail.
type failingApply struct {
	ports.Backend
	err error
}

func (f *failingApply) Apply(map[string][]byte, []string) error {
	return f.err
}

func TestManager_FailedCloseDiscardsCachesOnReopen(t *testing.T) {
	for _, backend := range []domain.Backend{domain.BackendSQLite, domain.BackendFiles} {
		t.Run(string(backend), func(t *testing.T) {
			opts := newOptions(t, backend)
			source := filepath.Join(opts.ProjectRoot, "A.kt")
			writeFile(t, source, "fun a() = foo()")

			diskFull := errors.New("disk full")
			backends := func(kind domain.Backend, dir, name string) (ports.Backend, error) {
				b, err := kvstore.OpenBackend(kind, dir, name)
				if err != nil || name != lookup.LookupsName {
					return b, err
				}
				return &failingApply{Backend: b, err: diskFull}, nil
			}

			m, err := caches.OpenJVM(opts, caches.Deps{Backends: backends})
			require.NoError(t, err)
			compile(t, m, "A.kt", []domain.LookupSymbol{symFoo}, "A.class")

			err = m.Close()
			require.ErrorIs(t, err, diskFull)
			assert.NoFileExists(t, domain.CleanCloseMarker(opts.CacheRoot))

			ctrl := gomock.NewController(t)
			logger := mocks.NewMockLogger(ctrl)
			logger.EXPECT().Warn(gomock.Any()).Times(1)

			reopened, err := caches.OpenJVM(opts, caches.Deps{Logger: logger})
			require.NoError(t, err)
			t.Cleanup(func() { _ = reopened.Close() })
			assert.True(t, reopened.Discarded())

			// The source is no longer up to date, so it gets compiled again.
			changed, err := reopened.Inputs().IsChanged(source)
			require.NoError(t, err)
			assert.True(t, changed)

			manifest, err := reopened.Platform().SourceToOutputs()
			require.NoError(t, err)
			assert.Empty(t, manifest)

			compile(t, reopened, "A.kt", []domain.LookupSymbol{symFoo}, "A.class")
			files, err := reopened.Lookups().Get(symFoo)
			require.NoError(t, err)
			assert.Equal(t, []domain.PathKey{"A.kt"}, files)
		})
	}
}

func TestManager_AbandonedSessionDiscardsCachesOnReopen(t *testing.T) {
	opts := newOptions(t, domain.BackendFiles)
	source := filepath.Join(opts.ProjectRoot, "A.kt")
	writeFile(t, source, "fun a() = 1")

	// A session that flushed but never closed, as after a crash.
	m, err := caches.OpenJVM(opts, caches.Deps{})
	require.NoError(t, err)
	compile(t, m, "A.kt", []domain.LookupSymbol{symFoo}, "A.class")
	require.NoError(t, m.Flush(false))

	reopened, err := caches.OpenJVM(opts, caches.Deps{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.True(t, reopened.Discarded())

	changed, err := reopened.Inputs().IsChanged(source)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestManager_FreshCacheRootIsNotDiscarded(t *testing.T) {
	opts := newOptions(t, domain.BackendSQLite)

	m, err := caches.OpenJVM(opts, caches.Deps{})
	require.NoError(t, err)
	assert.False(t, m.Discarded())
	require.NoError(t, m.Close())
}
