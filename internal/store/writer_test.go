package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ftsq/internal/arbiter"
)

func TestWithWriter_RollbackOnError(t *testing.T) {
	st := createTestStore(t)
	arb := arbiter.New()
	ctx := context.Background()
	s := movieSchema()
	ensureIndex(t, st, arb, s)

	boom := errors.New("boom")
	err := st.WithWriter(ctx, arb, "movie", time.Second, func(tx *sql.Tx) error {
		if _, err := InsertDocument(ctx, tx, s, []string{"title", "plot", "year"}, []any{"Alien", "space", 1979}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := CountDocuments(ctx, st.DB(), s)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, arb.Stats().Held)
}

func TestWithWriter_RollbackOnPanic(t *testing.T) {
	st := createTestStore(t)
	arb := arbiter.New()
	ctx := context.Background()
	s := movieSchema()
	ensureIndex(t, st, arb, s)

	assert.Panics(t, func() {
		_ = st.WithWriter(ctx, arb, "movie", time.Second, func(tx *sql.Tx) error {
			if _, err := InsertDocument(ctx, tx, s, []string{"title", "plot", "year"}, []any{"Alien", "space", 1979}); err != nil {
				return err
			}
			panic("writer crashed")
		})
	})

	n, err := CountDocuments(ctx, st.DB(), s)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, arb.Stats().Held)

	// The index is writable again.
	insertMovie(t, st, arb, "Alien", "space", 1979)
}

func TestWithWriter_ConcurrentWriters(t *testing.T) {
	if testing.Short() {
		t.Skip("concurrent writer test")
	}
	const writers, perWriter = 32, 64

	st := createTestStore(t)
	arb := arbiter.New(arbiter.WithTimeout(time.Minute))
	ctx := context.Background()
	s := movieSchema()
	ensureIndex(t, st, arb, s)

	ids := make([][]int64, writers)
	var g errgroup.Group
	for w := range writers {
		g.Go(func() error {
			return st.WithWriter(ctx, arb, "movie", time.Minute, func(tx *sql.Tx) error {
				for i := range perWriter {
					id, err := InsertDocument(ctx, tx, s, []string{"plot", "year"}, []any{"writer", w*perWriter + i})
					if err != nil {
						return err
					}
					ids[w] = append(ids[w], id)
				}
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())

	n, err := CountDocuments(ctx, st.DB(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*perWriter), n)
	assert.Equal(t, writers*perWriter, matchCount(t, st, "writer"))

	// Sessions never interleave, so each writer's ids form one run.
	for w, got := range ids {
		require.Len(t, got, perWriter, "writer %d", w)
		for i, id := range got {
			assert.Equal(t, got[0]+int64(i), id, "writer %d", w)
		}
	}
}

func TestWithWriter_AbandonedTransaction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.db")
	ctx := context.Background()
	s := movieSchema()

	st, err := Open(ctx, Options{Path: path})
	require.NoError(t, err)
	ensureIndex(t, st, arbiter.New(), s)

	// A writer that dies mid-transaction: the lock is taken and a row
	// written, but nothing is committed.
	conn, err := st.DB().Conn(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO movie (title, plot, year) VALUES ('Ghost', 'never committed', 1990)")
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, st.Close())

	reopened := openTestStore(t, path)
	arb := arbiter.New()
	id := insertMovie(t, reopened, arb, "Alien", "space", 1979)
	assert.NotZero(t, id)

	var n int
	require.NoError(t, reopened.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM movie WHERE title = 'Ghost'").Scan(&n))
	assert.Zero(t, n)
}
