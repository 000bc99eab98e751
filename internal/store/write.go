package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/schema"
)

// InsertDocument inserts a row and returns its id. The insert trigger
// indexes its full-text fields.
func InsertDocument(ctx context.Context, ex Executor, s *schema.Schema, cols []string, vals []any) (int64, error) {
	res, err := ex.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.Name(), strings.Join(cols, ", "), placeholders(len(cols))), vals...)
	if err != nil {
		return 0, errs.Database(s.Name(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Database(s.Name(), err)
	}
	return id, nil
}

// UpdateDocument sets cols of row id. A missing row is a
// DocumentDoesNotExist error; an empty column list only checks existence.
func UpdateDocument(ctx context.Context, ex Executor, s *schema.Schema, id int64, cols []string, vals []any) error {
	if len(cols) == 0 {
		ok, err := DocumentExists(ctx, ex, s, id)
		if err != nil {
			return err
		}
		if !ok {
			return errs.NotFound(s.Name(), id)
		}
		return nil
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	args := append(append([]any(nil), vals...), id)
	res, err := ex.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		s.Name(), strings.Join(sets, ", ")), args...)
	if err != nil {
		return errs.Database(s.Name(), err)
	}
	return requireAffected(res, s, id)
}

// DeleteDocument removes row id.
func DeleteDocument(ctx context.Context, ex Executor, s *schema.Schema, id int64) error {
	res, err := ex.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.Name()), id)
	if err != nil {
		return errs.Database(s.Name(), err)
	}
	return requireAffected(res, s, id)
}

// UpsertDocument inserts a row or, when a row with the same identity value
// exists, updates it in place. It returns the row id either way.
func UpsertDocument(ctx context.Context, ex Executor, s *schema.Schema, cols []string, vals []any) (int64, error) {
	identity := s.Identity()
	if identity == "" {
		return 0, errs.Field("", "schema %q has no unique field to match documents on", s.Name())
	}
	hasIdentity := false
	var sets []string
	for _, c := range cols {
		if c == identity {
			hasIdentity = true
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	if !hasIdentity {
		return 0, errs.Field(identity, "missing unique field %q", identity)
	}

	var id int64
	err := ex.QueryRowContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s RETURNING id",
		s.Name(), strings.Join(cols, ", "), placeholders(len(cols)), identity, strings.Join(sets, ", "),
	), vals...).Scan(&id)
	if err != nil {
		return 0, errs.Database(s.Name(), err)
	}
	return id, nil
}

// Optimize merges the full-text index b-trees.
func Optimize(ctx context.Context, ex Executor, s *schema.Schema) error {
	return command(ctx, ex, s, "optimize")
}

// Rebuild discards and rebuilds the full-text index from the document
// table.
func Rebuild(ctx context.Context, ex Executor, s *schema.Schema) error {
	return command(ctx, ex, s, "rebuild")
}

// IntegrityCheck verifies the full-text index against the document table.
func IntegrityCheck(ctx context.Context, ex Executor, s *schema.Schema) error {
	fts := s.FTSTable()
	if _, err := ex.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s(%s, rank) VALUES ('integrity-check', 1)", fts, fts)); err != nil {
		return errs.Database(s.Name(), err)
	}
	return nil
}

func command(ctx context.Context, ex Executor, s *schema.Schema, name string) error {
	fts := s.FTSTable()
	if _, err := ex.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s(%s) VALUES ('%s')", fts, fts, name)); err != nil {
		return errs.Database(s.Name(), err)
	}
	return nil
}

func requireAffected(res interface{ RowsAffected() (int64, error) }, s *schema.Schema, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Database(s.Name(), err)
	}
	if n == 0 {
		return errs.NotFound(s.Name(), id)
	}
	return nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
