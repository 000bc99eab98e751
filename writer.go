package ftsq

import (
	"context"
	"database/sql"

	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/store"
)

// Writer performs the writes of one session started by Index.Write. It is
// only valid until the session's function returns.
type Writer struct {
	idx *Index
	tx  *sql.Tx
}

// Insert adds a document and returns its id.
func (w *Writer) Insert(ctx context.Context, kw Lookups) (int64, error) {
	cols, vals, err := w.values(kw, lookup.ModeInsert)
	if err != nil {
		return 0, err
	}
	id, err := store.InsertDocument(ctx, w.tx, w.idx.schema, cols, vals)
	if err != nil {
		return 0, err
	}
	w.idx.logger.Debug("document inserted", "id", id)
	return id, nil
}

// Update sets the given fields of document id. Empty lookups only check
// that the document exists.
func (w *Writer) Update(ctx context.Context, id int64, kw Lookups) error {
	cols, vals, err := w.values(kw, lookup.ModeUpdate)
	if err != nil {
		return err
	}
	return store.UpdateDocument(ctx, w.tx, w.idx.schema, id, cols, vals)
}

// Delete removes document id.
func (w *Writer) Delete(ctx context.Context, id int64) error {
	return store.DeleteDocument(ctx, w.tx, w.idx.schema, id)
}

// InsertOrUpdate inserts a document or overwrites the one with the same
// unique field value. The schema must declare a unique field.
func (w *Writer) InsertOrUpdate(ctx context.Context, kw Lookups) (int64, error) {
	cols, vals, err := w.values(kw, lookup.ModeInsert)
	if err != nil {
		return 0, err
	}
	return store.UpsertDocument(ctx, w.tx, w.idx.schema, cols, vals)
}

// Get reads document id, including uncommitted changes of this session.
func (w *Writer) Get(ctx context.Context, id int64) (Document, error) {
	return w.idx.get(ctx, w.tx, id)
}

func (w *Writer) values(kw Lookups, mode lookup.Mode) ([]string, []any, error) {
	args, err := lookup.Resolve(w.idx.schema, lookup.Lookups(kw), mode)
	if err != nil {
		return nil, nil, err
	}
	cols, vals := lookup.Values(args)
	return cols, vals, nil
}
