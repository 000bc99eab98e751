package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/roach88/ftsq/internal/errs"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added ftsq_indexes.fingerprint
const currentSchemaVersion = 1

// DefaultDriver is the driver used when Options.Driver is empty.
const DefaultDriver = "sqlite"

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

// dsnFunc renders a driver DSN for a database path.
type dsnFunc func(path string, memory bool) string

var (
	driversMu sync.RWMutex
	drivers   = map[string]dsnFunc{}
)

// registerDriver makes a database/sql driver usable by Open.
func registerDriver(name string, dsn dsnFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = dsn
}

// Drivers returns the names of the compiled-in drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Options configures Open.
type Options struct {
	// Path is the database file; "" or MemoryPath opens an in-memory
	// database that lives as long as the Store.
	Path string

	// Driver is a name from Drivers(); DefaultDriver when empty.
	Driver string

	// MaxOpenConns bounds the pool of a file database. In-memory databases
	// always use a single connection.
	MaxOpenConns int

	Logger *slog.Logger
}

// Store is an open SQLite database.
type Store struct {
	db     *sql.DB
	path   string
	driver string
	memory bool
	logger *slog.Logger
}

// Open creates or opens a database. Applies the registry schema and
// migrations automatically.
//
// This function is idempotent - safe to call multiple times on one path.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Driver == "" {
		opts.Driver = DefaultDriver
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	memory := opts.Path == "" || opts.Path == MemoryPath
	if memory {
		opts.Path = MemoryPath
	} else {
		abs, err := filepath.Abs(opts.Path)
		if err != nil {
			return nil, errs.Connection("", err, "failed to resolve database path %q", opts.Path)
		}
		opts.Path = abs
	}

	driversMu.RLock()
	dsn, ok := drivers[opts.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, errs.Connection("", nil, "unknown driver %q (compiled in: %v)", opts.Driver, Drivers())
	}

	db, err := sql.Open(opts.Driver, dsn(opts.Path, memory))
	if err != nil {
		return nil, errs.Connection("", err, "failed to open database %q", opts.Path)
	}

	if memory {
		// Every connection to ":memory:" is a new database, so keep one
		// connection open for the life of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Connection("", err, "failed to connect to database %q", opts.Path)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	opts.Logger.Debug("database opened", "path", opts.Path, "driver", opts.Driver)
	return &Store{db: db, path: opts.Path, driver: opts.Driver, memory: memory, logger: opts.Logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the absolute database path (MemoryPath for in-memory
// databases).
func (s *Store) Path() string { return s.path }

// Driver returns the driver name.
func (s *Store) Driver() string { return s.driver }

// Memory reports whether the database is in-memory.
func (s *Store) Memory() bool { return s.memory }

// Key identifies index name within this database for writer arbitration.
// In-memory databases are private to their Store, so the key includes the
// Store's address.
func (s *Store) Key(name string) string {
	if s.memory {
		return fmt.Sprintf("%s@%p#%s", MemoryPath, s, name)
	}
	return s.path + "#" + name
}

// applySchema creates the registry if it doesn't exist and runs migrations.
func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(ctx, db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	if version < 1 {
		if err := migrateToV1(ctx, db); err != nil {
			return err
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the fingerprint column to registries created before it
// existed. New databases get it from schema.sql.
func migrateToV1(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info(ftsq_indexes)")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	defer rows.Close()

	has := false
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		has = has || name == "fingerprint"
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	rows.Close()

	if has {
		return nil
	}
	if _, err := db.ExecContext(ctx, "ALTER TABLE ftsq_indexes ADD COLUMN fingerprint TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
