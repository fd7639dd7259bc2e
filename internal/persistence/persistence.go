// Package persistence implements the SQLite repository (spec §4.10,
// component C10): WAL-mode storage for perception/processing artifacts,
// idempotent schema creation, additive migrations, and soft-delete
// semantics. Grounded on the teacher's
// internal/persistence/databases/chat_store_postgres.go idiom (a
// `NewXStore(...) persistence.Store` factory wrapping a connection handle,
// `CREATE TABLE IF NOT EXISTS` + `ALTER TABLE ADD COLUMN`, a package-level
// `ErrNotFound` sentinel), translated from pgx/Postgres syntax to
// database/sql/SQLite and from hard-delete to the soft-delete flag spec.md
// requires. Column layout follows
// original_source/backend/core/sqls/schema.py.
package persistence

import "errors"

// ErrNotFound is returned by get-by-id lookups when no row (including
// soft-deleted rows, since get_by_id ignores the deleted flag per spec
// §4.10) matches the given id.
var ErrNotFound = errors.New("persistence: not found")
