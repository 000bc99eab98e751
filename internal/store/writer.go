package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/roach88/ftsq/internal/arbiter"
	"github.com/roach88/ftsq/internal/errs"
)

// Executor runs statements. *sql.DB and *sql.Tx both satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Executor = (*sql.DB)(nil)
	_ Executor = (*sql.Tx)(nil)
)

// WithWriter runs fn as the single writer of index name.
//
// The arbiter lease is acquired first (bounded by timeout), then a
// transaction is begun. fn's error or panic rolls the transaction back;
// otherwise it is committed. The lease is released in every case.
func (st *Store) WithWriter(ctx context.Context, arb *arbiter.Arbiter, name string, timeout time.Duration, fn func(tx *sql.Tx) error) (err error) {
	lease, err := arb.AcquireWriter(ctx, st.Key(name), timeout)
	if err != nil {
		return err
	}
	defer lease.Release()

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Database(name, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			st.logger.Warn("rollback failed", "index", name, "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Database(name, err)
	}
	committed = true
	return nil
}
