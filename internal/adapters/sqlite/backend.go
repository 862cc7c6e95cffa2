// Package sqlite implements the durable tier of a persistent store on SQLite.
package sqlite

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	_ "modernc.org/sqlite" // Registers the "sqlite" driver.
)

var _ ports.Backend = (*Backend)(nil)

// FileExt is the extension of every store database.
const FileExt = ".db"

const schema = `CREATE TABLE IF NOT EXISTS entries (
	key TEXT PRIMARY KEY,
	value BLOB
)`

// Backend keeps one store in <dir>/<name>.db. Every Apply runs in one transaction,
// so a flush is either fully visible after a crash or not at all.
type Backend struct {
	path   string
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open opens or creates the database of the named store inside dir.
func Open(dir, name string) (*Backend, error) {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "dir", dir)
	}

	path := filepath.Join(dir, name+FileExt)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "open store database"), "path", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close() // ignore error
		return nil, zerr.With(zerr.Wrap(err, "set WAL mode on store database"), "path", path)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() // ignore error
		return nil, zerr.With(zerr.Wrap(err, "create entries table"), "path", path)
	}

	return &Backend{path: path, db: db}, nil
}

// Path returns the database file.
func (b *Backend) Path() string {
	return b.path
}

// Load reads one value.
func (b *Backend) Load(key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false, zerr.Wrap(domain.ErrStoreClosed, "sqlite backend")
	}

	var value []byte
	err := b.db.QueryRow("SELECT value FROM entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key)
	}
	return value, true, nil
}

// Keys lists every stored key in lexical order.
func (b *Backend) Keys() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, zerr.Wrap(domain.ErrStoreClosed, "sqlite backend")
	}

	rows, err := b.db.Query("SELECT key FROM entries ORDER BY key")
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return keys, nil
}

// Apply writes puts and removes in a single transaction.
func (b *Backend) Apply(puts map[string][]byte, removes []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return zerr.Wrap(domain.ErrStoreClosed, "sqlite backend")
	}
	if len(puts) == 0 && len(removes) == 0 {
		return nil
	}

	tx, err := b.db.Begin()
	if err != nil {
		return zerr.Wrap(err, "begin store flush")
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore

	if len(removes) > 0 {
		delStmt, err := tx.Prepare("DELETE FROM entries WHERE key = ?")
		if err != nil {
			return zerr.Wrap(err, "prepare entries delete")
		}
		defer func() { _ = delStmt.Close() }() // safe to ignore

		for _, key := range removes {
			if _, err := delStmt.Exec(key); err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
			}
		}
	}

	if len(puts) > 0 {
		putStmt, err := tx.Prepare("INSERT OR REPLACE INTO entries (key, value) VALUES (?, ?)")
		if err != nil {
			return zerr.Wrap(err, "prepare entries insert")
		}
		defer func() { _ = putStmt.Close() }() // safe to ignore

		for key, value := range puts {
			if _, err := putStmt.Exec(key, value); err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return zerr.Wrap(err, "commit store flush")
	}
	return nil
}

// Close closes the database. Closing twice is a no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.db.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "close store database"), "path", b.path)
	}
	return nil
}
