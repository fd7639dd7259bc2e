package persistence

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a single SQLite connection handle and all the repository
// methods in this package. The handle is guarded by a RWMutex so
// UpdateStoragePath can atomically swap it out from under concurrent callers
// per spec §4.10: the new handle is opened and migrated first, swapped in,
// and only then is the old one closed, so a failure leaves the previous
// handle in place.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the SQLite database at path, enables
// WAL mode, and runs the idempotent schema migration.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // go-sqlite3 + WAL: serialize writers through one handle
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: migrate %s: %w", path, err)
	}
	return db, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file this Store currently points at.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// conn returns the current handle under a read lock; callers must not retain
// it past the call that uses it, since UpdateStoragePath can swap it out.
func (s *Store) conn() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// UpdateStoragePath opens newPath, reruns the schema migration, swaps the
// new handle in, and then closes the old one. On any failure the previous handle is
// left in place and untouched, per spec §4.10's revert-on-failure rule.
func (s *Store) UpdateStoragePath(newPath string) error {
	newDB, err := openDB(newPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.db
	s.db = newDB
	s.path = newPath
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}
