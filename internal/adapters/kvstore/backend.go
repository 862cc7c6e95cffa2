package kvstore

import (
	"path/filepath"

	"go.trai.ch/incr/internal/adapters/cas"
	"go.trai.ch/incr/internal/adapters/sqlite"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

// Opener opens the durable tier of the store called name inside dir.
type Opener func(kind domain.Backend, dir, name string) (ports.Backend, error)

// OpenBackend opens the durable tier selected by kind.
// The sqlite backend keeps <dir>/<name>.db; the file backend keeps <dir>/<name>/.
func OpenBackend(kind domain.Backend, dir, name string) (ports.Backend, error) {
	var (
		backend ports.Backend
		err     error
	)
	switch kind {
	case domain.BackendSQLite:
		backend, err = sqlite.Open(dir, name)
	case domain.BackendFiles:
		backend, err = cas.NewStore(filepath.Join(dir, name))
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownBackend, "open store"), "backend", string(kind))
	}
	if err != nil {
		return nil, domain.NewStoreIOError(name, "open", err)
	}
	return backend, nil
}

// Factory opens the durable tier of a named store inside one cache directory.
type Factory func(name string) (ports.Backend, error)

// In binds an Opener to a backend kind and a cache directory.
func (o Opener) In(kind domain.Backend, dir string) Factory {
	return func(name string) (ports.Backend, error) {
		return o(kind, dir, name)
	}
}
