package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/schema"
)

// Registration is one row of the index registry.
type Registration struct {
	Name        string
	Managed     bool
	Definition  string
	Fingerprint string
	CreatedAt   time.Time
}

// Ensure creates index s, wraps an existing document table, or verifies a
// registered index, and returns its registration. It must run inside a
// writer session.
//
//   - registered: missing DDL is recreated; a changed definition is logged
//   - unregistered, table exists: the table is wrapped (managed = false),
//     its fields verified and the full-text table rebuilt from it
//   - unregistered, no table: everything is created (managed = true)
func (st *Store) Ensure(ctx context.Context, ex Executor, s *schema.Schema) (Registration, error) {
	def, err := MarshalDefinition(s)
	if err != nil {
		return Registration{}, err
	}
	fp := Fingerprint(def)

	reg, found, err := readRegistration(ctx, ex, s.Name())
	if err != nil {
		return Registration{}, errs.Database(s.Name(), err)
	}
	if found {
		if reg.Fingerprint != "" && reg.Fingerprint != fp {
			st.logger.Warn("index definition differs from registry", "index", s.Name(),
				"registered", reg.Fingerprint[:12], "current", fp[:12])
		}
		stmts := SearchStatements(s)
		if reg.Managed {
			stmts = append(TableStatements(s), stmts...)
		}
		if err := execAll(ctx, ex, stmts); err != nil {
			return Registration{}, errs.Database(s.Name(), err)
		}
		return reg, nil
	}

	exists, err := tableExists(ctx, ex, s.Name())
	if err != nil {
		return Registration{}, errs.Database(s.Name(), err)
	}

	reg = Registration{
		Name:        s.Name(),
		Managed:     !exists,
		Definition:  def,
		Fingerprint: fp,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	if exists {
		if err := verifyColumns(ctx, ex, s); err != nil {
			return Registration{}, err
		}
		if err := execAll(ctx, ex, SearchStatements(s)); err != nil {
			return Registration{}, errs.Database(s.Name(), err)
		}
		if err := Rebuild(ctx, ex, s); err != nil {
			return Registration{}, err
		}
		st.logger.Info("wrapped existing table", "index", s.Name())
	} else {
		if err := execAll(ctx, ex, append(TableStatements(s), SearchStatements(s)...)); err != nil {
			return Registration{}, errs.Database(s.Name(), err)
		}
		st.logger.Info("created index", "index", s.Name(), "fields", len(s.UserFields()))
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO ftsq_indexes (name, managed, definition, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, reg.Name, reg.Managed, reg.Definition, reg.Fingerprint, reg.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Registration{}, errs.Database(s.Name(), err)
	}
	return reg, nil
}

// Unregister drops the index's search structures (and its document table
// when managed) and removes its registry row. It must run inside a writer
// session.
func (st *Store) Unregister(ctx context.Context, ex Executor, s *schema.Schema) error {
	reg, found, err := readRegistration(ctx, ex, s.Name())
	if err != nil {
		return errs.Database(s.Name(), err)
	}
	if !found {
		return errs.Schema("index %q is not registered", s.Name())
	}
	if err := execAll(ctx, ex, DropStatements(s, reg.Managed)); err != nil {
		return errs.Database(s.Name(), err)
	}
	if _, err := ex.ExecContext(ctx, "DELETE FROM ftsq_indexes WHERE name = ?", s.Name()); err != nil {
		return errs.Database(s.Name(), err)
	}
	st.logger.Info("dropped index", "index", s.Name(), "managed", reg.Managed)
	return nil
}

const registrationsQuery = `
		SELECT name, managed, definition, fingerprint, created_at
		FROM ftsq_indexes
		ORDER BY name COLLATE BINARY ASC
	`

// Registrations lists the registry ordered by name.
func (st *Store) Registrations(ctx context.Context) ([]Registration, error) {
	rows, err := st.db.QueryContext(ctx, registrationsQuery)
	if err != nil {
		return nil, errs.Database("", err)
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, errs.Database("", err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database("", err)
	}
	return out, nil
}

// Registration returns the registry row of name.
func (st *Store) Registration(ctx context.Context, name string) (Registration, bool, error) {
	reg, found, err := readRegistration(ctx, st.db, name)
	if err != nil {
		return Registration{}, false, errs.Database(name, err)
	}
	return reg, found, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row scanner) (Registration, error) {
	var (
		reg     Registration
		created string
	)
	if err := row.Scan(&reg.Name, &reg.Managed, &reg.Definition, &reg.Fingerprint, &created); err != nil {
		return Registration{}, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Registration{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	reg.CreatedAt = t
	return reg, nil
}

func readRegistration(ctx context.Context, ex Executor, name string) (Registration, bool, error) {
	row := ex.QueryRowContext(ctx, `
		SELECT name, managed, definition, fingerprint, created_at
		FROM ftsq_indexes WHERE name = ?
	`, name)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Registration{}, false, nil
	}
	if err != nil {
		return Registration{}, false, err
	}
	return reg, true, nil
}

func tableExists(ctx context.Context, ex Executor, name string) (bool, error) {
	var n int
	err := ex.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	return n > 0, err
}

// verifyColumns checks that a wrapped table has every declared column.
func verifyColumns(ctx context.Context, ex Executor, s *schema.Schema) error {
	rows, err := ex.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", s.Name())
	if err != nil {
		return errs.Database(s.Name(), err)
	}
	defer rows.Close()

	have := map[string]bool{}
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return errs.Database(s.Name(), err)
		}
		have[col] = true
	}
	if err := rows.Err(); err != nil {
		return errs.Database(s.Name(), err)
	}
	for _, f := range s.Columns() {
		if !have[f.Name] {
			return errs.Schema("existing table %q has no column %q", s.Name(), f.Name)
		}
	}
	return nil
}

func execAll(ctx context.Context, ex Executor, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	const max = 60
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
