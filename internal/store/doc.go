// Package store provides the SQLite boundary of ftsq: connections, index
// DDL, the index registry, writer sessions and raw document statements.
//
// Every logical index named N is backed by:
//   - N: the document table (id INTEGER PRIMARY KEY AUTOINCREMENT + fields)
//   - N_fts: an FTS5 external-content table over N's full-text fields
//   - N_ai, N_ad, N_au: triggers keeping N_fts in sync with N
//   - N_fts_v: an fts5vocab (row) table exposing the term vocabulary
//   - one B-tree index per indexed attribute field
//
// The registry table ftsq_indexes records each index's definition and
// whether ftsq created the document table (managed) or wrapped a table
// that already existed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - _txlock=immediate: BEGIN takes the write lock, so a writer session
//     either owns the database or waits; it never upgrades mid-transaction
//
// Two drivers are supported. "sqlite" (modernc.org/sqlite, pure Go, FTS5
// built in) is always available. "sqlite3" (mattn/go-sqlite3) is compiled
// in with the sqlite_fts5 build tag.
//
// # Writer sessions
//
// WithWriter serializes writers per index inside the process through an
// arbiter lease, then runs fn in one transaction. Crash safety is the
// engine's: an uncommitted transaction is rolled back when its connection
// goes away, and the file lock is released with it.
package store
