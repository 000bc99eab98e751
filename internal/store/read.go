package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/schema"
)

// Term is one vocabulary entry.
type Term struct {
	Term  string
	Docs  int64 // documents containing the term
	Count int64 // total occurrences
}

// GetDocument returns the values of s.Columns() for row id.
func GetDocument(ctx context.Context, ex Executor, s *schema.Schema, id int64) ([]any, error) {
	cols := s.Columns()
	names := make([]string, len(cols))
	for i, f := range cols {
		names[i] = f.Name
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	err := ex.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE id = ?",
		strings.Join(names, ", "), s.Name()), id).Scan(ptrs...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound(s.Name(), id)
	}
	if err != nil {
		return nil, errs.Database(s.Name(), err)
	}
	return vals, nil
}

// DocumentExists reports whether row id exists.
func DocumentExists(ctx context.Context, ex Executor, s *schema.Schema, id int64) (bool, error) {
	var n int
	err := ex.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", s.Name()), id).Scan(&n)
	if err != nil {
		return false, errs.Database(s.Name(), err)
	}
	return n > 0, nil
}

// CountDocuments returns the number of rows in the document table.
func CountDocuments(ctx context.Context, ex Executor, s *schema.Schema) (int64, error) {
	var n int64
	if err := ex.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.Name()).Scan(&n); err != nil {
		return 0, errs.Database(s.Name(), err)
	}
	return n, nil
}

// VocabularyQuery returns the statement Vocabulary runs.
func VocabularyQuery(s *schema.Schema) string {
	return fmt.Sprintf("SELECT term, doc, cnt FROM %s ORDER BY term COLLATE BINARY ASC", s.VocabTable())
}

// Vocabulary returns every indexed term ordered by term.
func Vocabulary(ctx context.Context, ex Executor, s *schema.Schema) ([]Term, error) {
	rows, err := ex.QueryContext(ctx, VocabularyQuery(s))
	if err != nil {
		return nil, errs.Database(s.Name(), err)
	}
	defer rows.Close()

	var out []Term
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.Term, &t.Docs, &t.Count); err != nil {
			return nil, errs.Database(s.Name(), err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database(s.Name(), err)
	}
	return out, nil
}

// LookupTerm returns the vocabulary entry of term, if indexed.
func LookupTerm(ctx context.Context, ex Executor, s *schema.Schema, term string) (Term, bool, error) {
	t := Term{Term: term}
	err := ex.QueryRowContext(ctx, fmt.Sprintf("SELECT doc, cnt FROM %s WHERE term = ?", s.VocabTable()), term).
		Scan(&t.Docs, &t.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return Term{}, false, nil
	}
	if err != nil {
		return Term{}, false, errs.Database(s.Name(), err)
	}
	return t, true, nil
}

// ScanRow reads the current row of rows into a fresh slice.
func ScanRow(rows *sql.Rows, n int) ([]any, error) {
	vals := make([]any, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

// CountTerms returns the number of distinct indexed terms.
func CountTerms(ctx context.Context, ex Executor, s *schema.Schema) (int64, error) {
	var n int64
	if err := ex.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.VocabTable()).Scan(&n); err != nil {
		return 0, errs.Database(s.Name(), err)
	}
	return n, nil
}
