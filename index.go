package ftsq

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/ftsq/internal/arbiter"
	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/filter"
	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/querysql"
	"github.com/roach88/ftsq/internal/reader"
	"github.com/roach88/ftsq/internal/schema"
	"github.com/roach88/ftsq/internal/spell"
	"github.com/roach88/ftsq/internal/store"
)

// DefaultIndexName names the index opened with a nil schema.
const DefaultIndexName = "documents"

// Index is a searchable document collection backed by one database file.
// An Index is safe for concurrent use; writes are serialized per index by
// its arbiter, reads are not.
type Index struct {
	st        *store.Store
	schema    *schema.Schema
	arb       *arbiter.Arbiter
	compiler  *querysql.SQLCompiler
	writeable bool
	timeout   time.Duration
	logger    *slog.Logger
	reg       store.Registration
}

type options struct {
	writeable    bool
	timeout      time.Duration
	arb          *arbiter.Arbiter
	logger       *slog.Logger
	maxOpenConns int
	driver       string
}

// Option configures Open.
type Option func(*options)

// WithWriteable allows writes and creates the index if it does not exist.
func WithWriteable() Option {
	return func(o *options) {
		o.writeable = true
	}
}

// WithWriterTimeout bounds the wait for the writer token.
func WithWriterTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithArbiter replaces the process-wide arbiter.
func WithArbiter(a *arbiter.Arbiter) Option {
	return func(o *options) {
		if a != nil {
			o.arb = a
		}
	}
}

// WithLogger sets the logger. Statements are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxOpenConns caps the reader connection pool of file databases.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		o.maxOpenConns = n
	}
}

// WithDriver selects the database/sql driver ("sqlite" or, when built
// with -tags sqlite_fts5, "sqlite3").
func WithDriver(name string) Option {
	return func(o *options) {
		o.driver = name
	}
}

// Open opens the index described by s in the database at path. An empty
// path opens a private in-memory database. A nil schema is the default
// schema {text: searchable} named "documents".
//
// A writeable index is created (or an existing table of the same name
// wrapped) on first open. Opening a missing index read-only is a
// SchemaError.
func Open(ctx context.Context, path string, s *schema.Schema, opts ...Option) (*Index, error) {
	o := options{
		timeout: arbiter.DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.arb == nil {
		o.arb = arbiter.Default()
	}
	if s == nil {
		s = schema.Default(DefaultIndexName)
	}

	st, err := store.Open(ctx, store.Options{
		Path:         path,
		Driver:       o.driver,
		MaxOpenConns: o.maxOpenConns,
		Logger:       o.logger,
	})
	if err != nil {
		return nil, err
	}

	idx := &Index{
		st:        st,
		schema:    s,
		arb:       o.arb,
		compiler:  querysql.NewSQLCompiler(),
		writeable: o.writeable,
		timeout:   o.timeout,
		logger:    o.logger.With("index", s.Name()),
	}

	if o.writeable {
		err = st.WithWriter(ctx, idx.arb, s.Name(), idx.timeout, func(tx *sql.Tx) error {
			reg, err := st.Ensure(ctx, tx, s)
			idx.reg = reg
			return err
		})
	} else {
		var ok bool
		idx.reg, ok, err = st.Registration(ctx, s.Name())
		if err == nil && !ok {
			err = errs.Schema("index %q does not exist; open it writeable to create it", s.Name())
		}
	}
	if err != nil {
		st.Close()
		return nil, err
	}
	return idx, nil
}

// Close closes the database. The writer token of an in-memory index is
// returned to the arbiter, since no other Index can share it.
func (idx *Index) Close() error {
	if idx.st.Memory() {
		idx.arb.Forget(idx.st.Key(idx.Name()))
	}
	return idx.st.Close()
}

// Name returns the index name.
func (idx *Index) Name() string { return idx.schema.Name() }

// Schema returns the index schema.
func (idx *Index) Schema() *schema.Schema { return idx.schema }

// Writeable reports whether the index accepts writes.
func (idx *Index) Writeable() bool { return idx.writeable }

// Managed reports whether the document table was created by ftsq rather
// than wrapped.
func (idx *Index) Managed() bool { return idx.reg.Managed }

// Search starts a query. Arguments are either keyword Lookups, combined
// with AND, or Q expressions; mixing the two is a QueryError. No argument
// selects every document.
func (idx *Index) Search(args ...SearchArg) *Query {
	q := idx.newQuery()

	var (
		kw    = lookup.Lookups{}
		exprs []*Expr
	)
	for _, a := range args {
		switch v := a.(type) {
		case Lookups:
			for k, val := range v {
				kw[k] = val
			}
		case *Expr:
			exprs = append(exprs, v)
		}
	}

	switch {
	case len(kw) > 0 && len(exprs) > 0:
		return q.fail(errs.Query("Q expressions and keyword lookups cannot be mixed in one search"))
	case len(exprs) > 0:
		e := exprs[0].inner()
		for _, o := range exprs[1:] {
			e = e.And(o.inner())
		}
		if err := e.Err(); err != nil {
			return q.fail(err)
		}
		nodes := e.Nodes()
		for _, n := range nodes {
			if _, err := idx.filterFor(n.Key, n.Value); err != nil {
				return q.fail(err)
			}
		}
		q.segments = []segment{{nodes: nodes}}
	case len(kw) > 0:
		resolved, err := lookup.Resolve(idx.schema, kw, lookup.ModeSearch)
		if err != nil {
			return q.fail(err)
		}
		q.segments = []segment{{nodes: keywordNodes(resolved)}}
	}
	return q
}

// Autocomplete searches one full-text field for documents containing the
// typed words, the last one as a prefix. Documents that start with the
// typed text rank first. No argument selects every document.
func (idx *Index) Autocomplete(kw Lookups) *Query {
	if len(kw) == 0 {
		return idx.Search()
	}
	if len(kw) > 1 {
		return idx.newQuery().fail(errs.Query("autocomplete takes exactly one field, got %d", len(kw)))
	}

	var (
		name string
		text string
	)
	for k, v := range kw {
		name, text = k, filterText(v)
	}
	f, err := idx.schema.MustField(name)
	if err != nil {
		return idx.newQuery().fail(err)
	}
	if !f.FullText {
		return idx.newQuery().fail(errs.Query("autocomplete needs a full-text field, %q is not one", name))
	}

	words := idx.schema.Tokenizer().Words(text)
	if len(words) == 0 {
		return idx.Search(Lookups{name: ""})
	}

	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = filter.Quote(w)
	}
	phrase := "^" + filter.Quote(strings.Join(words, " ")) + "*"
	terms := strings.Join(quoted, " ") + "*"

	anchored := Q(Lookups{name + "__" + lookup.AllowInitialToken + "__" + lookup.AllowPrefix: phrase})
	anywhere := Q(Lookups{name + "__" + lookup.AllowPrefix: terms})
	return idx.Search(anchored.Or(anywhere))
}

// Get returns the document with id.
func (idx *Index) Get(ctx context.Context, id int64) (Document, error) {
	return idx.get(ctx, idx.st.DB(), id)
}

func (idx *Index) get(ctx context.Context, ex store.Executor, id int64) (Document, error) {
	vals, err := store.GetDocument(ctx, ex, idx.schema, id)
	if err != nil {
		return Document{}, err
	}
	cols := idx.schema.Columns()
	keys := make([]string, len(cols))
	for i, f := range cols {
		keys[i] = f.Name
	}
	return newDocument(keys, vals, idx.schema), nil
}

// Insert adds a document and returns its id. Every declared field without
// a default is required.
func (idx *Index) Insert(ctx context.Context, kw Lookups) (id int64, err error) {
	err = idx.Write(ctx, func(w *Writer) error {
		id, err = w.Insert(ctx, kw)
		return err
	})
	return id, err
}

// Update sets the given fields of document id.
func (idx *Index) Update(ctx context.Context, id int64, kw Lookups) error {
	return idx.Write(ctx, func(w *Writer) error {
		return w.Update(ctx, id, kw)
	})
}

// Delete removes document id.
func (idx *Index) Delete(ctx context.Context, id int64) error {
	return idx.Write(ctx, func(w *Writer) error {
		return w.Delete(ctx, id)
	})
}

// InsertOrUpdate inserts a document or updates the one with the same
// unique field value, and returns its id.
func (idx *Index) InsertOrUpdate(ctx context.Context, kw Lookups) (id int64, err error) {
	err = idx.Write(ctx, func(w *Writer) error {
		id, err = w.InsertOrUpdate(ctx, kw)
		return err
	})
	return id, err
}

// Write runs fn as the index's only writer. Everything fn does is
// committed together when it returns nil and rolled back otherwise.
func (idx *Index) Write(ctx context.Context, fn func(w *Writer) error) error {
	if !idx.writeable {
		return errs.ReadOnly(idx.Name())
	}
	return idx.st.WithWriter(ctx, idx.arb, idx.Name(), idx.timeout, func(tx *sql.Tx) error {
		return fn(&Writer{idx: idx, tx: tx})
	})
}

// Optimize merges the full-text index segments.
func (idx *Index) Optimize(ctx context.Context) error {
	if !idx.writeable {
		return errs.ReadOnly(idx.Name())
	}
	return idx.st.WithWriter(ctx, idx.arb, idx.Name(), idx.timeout, func(tx *sql.Tx) error {
		return store.Optimize(ctx, tx, idx.schema)
	})
}

// Rebuild recreates the full-text index from the document table. It
// repairs an index whose table was changed behind the triggers' back.
func (idx *Index) Rebuild(ctx context.Context) error {
	if !idx.writeable {
		return errs.ReadOnly(idx.Name())
	}
	return idx.st.WithWriter(ctx, idx.arb, idx.Name(), idx.timeout, func(tx *sql.Tx) error {
		return store.Rebuild(ctx, tx, idx.schema)
	})
}

// Drop removes the index from the database: its search structures, its
// registry entry and, for managed indexes, the document table. The Index
// must not be used afterwards except to Close it.
func (idx *Index) Drop(ctx context.Context) error {
	if !idx.writeable {
		return errs.ReadOnly(idx.Name())
	}
	return idx.st.WithWriter(ctx, idx.arb, idx.Name(), idx.timeout, func(tx *sql.Tx) error {
		return idx.st.Unregister(ctx, tx, idx.schema)
	})
}

// Build indexes every document r yields in one writer session, inserting
// or updating by the unique field, and returns the number of documents.
func (idx *Index) Build(ctx context.Context, r reader.Reader) (int, error) {
	start := time.Now()
	n := 0
	err := idx.Write(ctx, func(w *Writer) error {
		return r.Read(ctx, func(doc lookup.Lookups) error {
			if _, err := w.InsertOrUpdate(ctx, Lookups(doc)); err != nil {
				return err
			}
			n++
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	idx.logger.Info("index built", "documents", n, "duration", time.Since(start))
	return n, nil
}

// Spell returns the spell checker of the index. Its Build method rewrites
// the candidate table from the current vocabulary.
func (idx *Index) Spell(opts ...spell.Option) *spell.Checker {
	base := []spell.Option{spell.WithWriterTimeout(idx.timeout), spell.WithLogger(idx.logger)}
	return spell.New(idx.st, idx.arb, idx.schema, append(base, opts...)...)
}

// Stats describes an index.
type Stats struct {
	Name      string
	Path      string
	Memory    bool
	Managed   bool
	CreatedAt time.Time
	Documents int64
	Terms     int64
}

// Stats counts documents and indexed terms.
func (idx *Index) Stats(ctx context.Context) (Stats, error) {
	docs, err := store.CountDocuments(ctx, idx.st.DB(), idx.schema)
	if err != nil {
		return Stats{}, err
	}
	terms, err := store.CountTerms(ctx, idx.st.DB(), idx.schema)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Name:      idx.Name(),
		Path:      idx.st.Path(),
		Memory:    idx.st.Memory(),
		Managed:   idx.reg.Managed,
		CreatedAt: idx.reg.CreatedAt,
		Documents: docs,
		Terms:     terms,
	}, nil
}

// filterFor parses and validates one lookup against the schema.
func (idx *Index) filterFor(key string, value any) (filter.Filter, error) {
	l, err := lookup.Parse(key, value)
	if err != nil {
		return nil, err
	}
	f, err := idx.schema.MustField(l.Field)
	if err != nil {
		return nil, err
	}
	if f.Hidden {
		return nil, errs.Field(f.Name, "field %q cannot be filtered", f.Name)
	}
	if err := lookup.Validate(f, l); err != nil {
		return nil, err
	}
	return filter.For(f, l), nil
}

func filterText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}
