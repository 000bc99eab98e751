package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ftsq/internal/arbiter"
	"github.com/roach88/ftsq/internal/schema"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "test.db"))
}

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func movieSchema() *schema.Schema {
	return schema.MustNew("movie", []schema.Field{
		schema.Text("title").Searchable().Unique(),
		schema.Text("plot").Searchable(),
		schema.Int("year").Indexed(),
	})
}

// ensureIndex creates s inside a writer session.
func ensureIndex(t *testing.T, st *Store, arb *arbiter.Arbiter, s *schema.Schema) Registration {
	t.Helper()
	var reg Registration
	err := st.WithWriter(context.Background(), arb, s.Name(), time.Second, func(tx *sql.Tx) error {
		var err error
		reg, err = st.Ensure(context.Background(), tx, s)
		return err
	})
	require.NoError(t, err)
	return reg
}

// insertMovie inserts one row inside its own writer session.
func insertMovie(t *testing.T, st *Store, arb *arbiter.Arbiter, title, plot string, year int) int64 {
	t.Helper()
	var id int64
	err := st.WithWriter(context.Background(), arb, "movie", time.Second, func(tx *sql.Tx) error {
		var err error
		id, err = InsertDocument(context.Background(), tx, movieSchema(),
			[]string{"title", "plot", "year"}, []any{title, plot, year})
		return err
	})
	require.NoError(t, err)
	return id
}
