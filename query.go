package ftsq

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/filter"
	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/qexpr"
	"github.com/roach88/ftsq/internal/queryir"
	"github.com/roach88/ftsq/internal/schema"
	"github.com/roach88/ftsq/internal/store"
)

// Default result window.
const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

// segment is one SELECT of a possibly unioned query.
type segment struct {
	nodes []qexpr.Node
}

// Query is an immutable search over one index. Every builder method
// returns a modified copy, so a Query may be shared and extended freely.
//
// Builder mistakes do not panic: the first error is kept on the Query and
// returned by SQL and every execution method before the engine is used.
type Query struct {
	idx      *Index
	err      error
	segments []segment

	columns      []string
	decorations  map[string]queryir.Column
	order        []queryir.Order
	customValues bool
	customOrder  bool

	limit  int
	offset int
}

func (idx *Index) newQuery() *Query {
	cols := idx.schema.Columns()
	names := make([]string, 0, len(cols)+1)
	for _, f := range cols {
		names = append(names, f.Name)
	}
	names = append(names, schema.RankField)

	return &Query{
		idx:         idx,
		segments:    []segment{{}},
		columns:     names,
		decorations: map[string]queryir.Column{},
		order:       []queryir.Order{{Name: schema.RankField}},
		limit:       DefaultLimit,
		offset:      DefaultOffset,
	}
}

func (q *Query) clone() *Query {
	c := *q
	c.segments = append([]segment(nil), q.segments...)
	c.columns = append([]string(nil), q.columns...)
	c.order = append([]queryir.Order(nil), q.order...)
	c.decorations = make(map[string]queryir.Column, len(q.decorations))
	for k, v := range q.decorations {
		c.decorations[k] = v
	}
	return &c
}

// fail returns a copy carrying err unless an earlier error is already
// recorded.
func (q *Query) fail(err error) *Query {
	c := q.clone()
	if c.err == nil {
		c.err = err
	}
	return c
}

// Err returns the first builder error, if any.
func (q *Query) Err() error { return q.err }

// keywordNodes turns resolved keyword lookups into AND-joined nodes.
func keywordNodes(args []lookup.Argument) []qexpr.Node {
	var nodes []qexpr.Node
	for _, a := range args {
		for _, l := range a.Lookups {
			conn := queryir.And
			if len(nodes) == 0 {
				conn = queryir.None
			}
			nodes = append(nodes, qexpr.Node{Key: l.Key, Value: l.Value, Conn: conn})
		}
	}
	return nodes
}

// Values replaces the selected columns. "rank" selects the relevance
// score. The projection applies to every unioned segment.
func (q *Query) Values(names ...string) *Query {
	if len(names) == 0 {
		return q.fail(errs.Query("values needs at least one field"))
	}
	seen := map[string]bool{}
	for _, n := range names {
		if _, err := q.idx.schema.MustField(n); err != nil {
			return q.fail(err)
		}
		if seen[n] {
			return q.fail(errs.Query("field %q selected twice", n))
		}
		seen[n] = true
	}
	c := q.clone()
	c.columns = append([]string(nil), names...)
	c.customValues = true
	return c
}

// OrderBy replaces the ordering. A key prefixed with "-" sorts descending,
// "+" or no prefix ascending. The document id always breaks ties.
func (q *Query) OrderBy(keys ...string) *Query {
	order := make([]queryir.Order, 0, len(keys))
	for _, k := range keys {
		o := queryir.Order{Name: k}
		switch {
		case strings.HasPrefix(k, "-"):
			o = queryir.Order{Name: k[1:], Desc: true}
		case strings.HasPrefix(k, "+"):
			o.Name = k[1:]
		}
		if _, err := q.idx.schema.MustField(o.Name); err != nil {
			return q.fail(err)
		}
		order = append(order, o)
	}
	c := q.clone()
	c.order = order
	c.customOrder = true
	return c
}

// fullTextColumn validates that name may be highlighted.
func (q *Query) fullTextColumn(op, name string) (int, error) {
	f, err := q.idx.schema.MustField(name)
	if err != nil {
		return 0, err
	}
	col, ok := q.idx.schema.FullTextColumn(f.Name)
	if !f.FullText || !ok {
		return 0, errs.Query("%s needs a full-text field, %q is not one", op, name)
	}
	return col, nil
}

// Highlight wraps the matches in field with start and end. Only affects
// the result when field is selected.
func (q *Query) Highlight(field, start, end string) *Query {
	col, err := q.fullTextColumn("highlight", field)
	if err != nil {
		return q.fail(err)
	}
	c := q.clone()
	c.decorations[field] = queryir.Highlight{Name: field, Column: col, Start: start, End: end}
	return c
}

// Snippet replaces field with an excerpt of at most tokens tokens around
// the matches, each match wrapped in before and after. tokens must be in
// (0, 64).
func (q *Query) Snippet(field, before, after, ellipsis string, tokens int) *Query {
	col, err := q.fullTextColumn("snippet", field)
	if err != nil {
		return q.fail(err)
	}
	if tokens <= 0 || tokens >= queryir.MaxSnippetTokens {
		return q.fail(errs.Query("snippet length must be between 0 and %d (exclusive), got %d", queryir.MaxSnippetTokens, tokens))
	}
	c := q.clone()
	c.decorations[field] = queryir.Snippet{
		Name:     field,
		Column:   col,
		Before:   before,
		After:    after,
		Ellipsis: ellipsis,
		Tokens:   tokens,
	}
	return c
}

// Union returns the rows of q followed by the rows of other, as one result
// ordered and sliced as a whole. Neither side may have custom values or
// ordering; set those on the union instead. Highlights and snippets of
// both sides apply to the whole union, so the two sides may not decorate
// one field differently.
func (q *Query) Union(other *Query) *Query {
	switch {
	case other == nil:
		return q.fail(errs.Query("cannot union with a nil query"))
	case other.err != nil:
		return q.fail(other.err)
	case other.idx != q.idx:
		return q.fail(errs.Query("cannot union queries of different indexes (%q, %q)", q.idx.Name(), other.idx.Name()))
	case q.customValues || q.customOrder || other.customValues || other.customOrder:
		return q.fail(errs.Query("values and order_by cannot be customized on a unioned query; apply them to the union"))
	}
	c := q.clone()
	for name, d := range other.decorations {
		if have, ok := c.decorations[name]; ok && have != d {
			return q.fail(errs.Query("field %q is decorated differently on the two sides of a union", name))
		}
		c.decorations[name] = d
	}
	c.segments = append(c.segments, other.segments...)
	return c
}

// Slice selects rows [start, stop) of the result.
func (q *Query) Slice(start, stop int) *Query {
	if start < 0 || stop < start {
		return q.fail(errs.Query("invalid slice [%d:%d]: bounds must be non-negative and ordered", start, stop))
	}
	c := q.clone()
	c.offset = start
	c.limit = stop - start
	return c
}

// ParseSlice applies a textual "start:stop" slice. Both bounds are
// required.
func (q *Query) ParseSlice(s string) *Query {
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return q.fail(errs.Query("invalid slice %q: expected start:stop", s))
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return q.fail(errs.Query("invalid slice %q: start is not an integer", s))
	}
	stop, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return q.fail(errs.Query("invalid slice %q: stop is not an integer", s))
	}
	return q.Slice(start, stop)
}

// SQL returns the statement and its parameters without executing it.
func (q *Query) SQL() (string, []any, error) {
	stmt, err := q.statement()
	if err != nil {
		return "", nil, err
	}
	return q.idx.compiler.Compile(stmt)
}

// All executes the query and collects every row.
func (q *Query) All(ctx context.Context) ([]Document, error) {
	var out []Document
	for doc, err := range q.Rows(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Rows executes the query and yields its rows. Iteration stops at the
// first error, which is yielded with a zero Document.
func (q *Query) Rows(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		query, params, err := q.SQL()
		if err != nil {
			yield(Document{}, err)
			return
		}
		q.idx.logger.Debug("statement", "sql", query, "params", len(params))

		rows, err := q.idx.st.DB().QueryContext(ctx, query, params...)
		if err != nil {
			yield(Document{}, errs.Database(q.idx.Name(), err))
			return
		}
		defer rows.Close()

		keys, err := rows.Columns()
		if err != nil {
			yield(Document{}, errs.Database(q.idx.Name(), err))
			return
		}
		for rows.Next() {
			vals, err := store.ScanRow(rows, len(keys))
			if err != nil {
				yield(Document{}, errs.Database(q.idx.Name(), err))
				return
			}
			if !yield(newDocument(keys, vals, q.idx.schema), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Document{}, errs.Database(q.idx.Name(), err))
		}
	}
}

// At returns the row at position i of the result.
func (q *Query) At(ctx context.Context, i int) (Document, error) {
	if i < 0 {
		return Document{}, errs.Query("invalid index %d: must not be negative", i)
	}
	docs, err := q.Slice(i, i+1).All(ctx)
	if err != nil {
		return Document{}, err
	}
	if len(docs) == 0 {
		return Document{}, &errs.Error{
			Code:    errs.CodeDocumentDoesNotExist,
			Index:   q.idx.Name(),
			Message: fmt.Sprintf("no result at position %d", i),
		}
	}
	return docs[0], nil
}

// Count returns the number of matching rows, ignoring any slice.
func (q *Query) Count(ctx context.Context) (int64, error) {
	stmt, err := q.statement()
	if err != nil {
		return 0, err
	}
	query, params, err := q.idx.compiler.CompileCount(stmt)
	if err != nil {
		return 0, err
	}
	q.idx.logger.Debug("statement", "sql", query, "params", len(params))

	var n sql.NullInt64
	if err := q.idx.st.DB().QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, errs.Database(q.idx.Name(), err)
	}
	return n.Int64, nil
}

// statement builds the statement IR.
func (q *Query) statement() (queryir.Query, error) {
	if q.err != nil {
		return nil, q.err
	}
	cols := q.projection()

	if len(q.segments) == 1 {
		sel, err := q.selectFor(q.segments[0], cols)
		if err != nil {
			return nil, err
		}
		sel.Order = q.order
		sel.Limit = q.limit
		sel.Offset = q.offset
		return sel, nil
	}

	u := queryir.Union{
		Order:  projectedOrder(q.order, cols),
		Limit:  q.limit,
		Offset: q.offset,
	}
	for _, seg := range q.segments {
		sel, err := q.selectFor(seg, cols)
		if err != nil {
			return nil, err
		}
		u.Segments = append(u.Segments, sel)
	}
	return u, nil
}

func (q *Query) projection() []queryir.Column {
	cols := make([]queryir.Column, 0, len(q.columns))
	for _, name := range q.columns {
		switch {
		case name == schema.RankField:
			cols = append(cols, queryir.Rank{Name: name})
		case q.decorations[name] != nil:
			cols = append(cols, q.decorations[name])
		default:
			cols = append(cols, queryir.Field{Name: name})
		}
	}
	return cols
}

// projectedOrder drops order terms a union cannot resolve because they are
// not selected.
func projectedOrder(order []queryir.Order, cols []queryir.Column) []queryir.Order {
	projected := map[string]bool{}
	for _, a := range queryir.Aliases(cols) {
		projected[a] = true
	}
	var out []queryir.Order
	for _, o := range order {
		if projected[o.Name] {
			out = append(out, o)
		}
	}
	return out
}

// selectFor renders the predicates of one segment.
func (q *Query) selectFor(seg segment, cols []queryir.Column) (queryir.Select, error) {
	s := q.idx.schema

	var firstErr error
	filterOf := func(n qexpr.Node) filter.Filter {
		f, err := q.idx.filterFor(n.Key, n.Value)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return f
	}

	d := qexpr.Split(seg.nodes, func(n qexpr.Node) bool {
		f := filterOf(n)
		return f != nil && f.FullText()
	})
	where := queryir.Where{
		Bridge: d.Bridge,
		FullText: qexpr.Fragments(d.FullText, func(n qexpr.Node) (string, []any) {
			m, _ := filterOf(n).(filter.Match)
			return m.Operand(s.Tokenizer()), nil
		}),
		Attribute: qexpr.Fragments(d.Attribute, func(n qexpr.Node) (string, []any) {
			a, ok := filterOf(n).(filter.Attribute)
			if !ok {
				return "", nil
			}
			return a.Render(s.Name())
		}),
	}
	if firstErr != nil {
		return queryir.Select{}, firstErr
	}

	return queryir.Select{
		Table:    s.Name(),
		FTSTable: s.FTSTable(),
		Columns:  cols,
		Where:    where,
	}, nil
}
