package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/ftsq/internal/queryir"
)

// IDColumn is the document key; it breaks ties in every ORDER BY.
const IDColumn = "id"

// SQLCompiler compiles query IR to parameterized SQLite statements.
//
// Every statement ends in ORDER BY with the document id as final tie
// breaker, so identical queries return rows in identical order. All values
// are bound parameters; only identifiers from the schema are interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL and its parameters. It is pure:
// compiling the same query twice yields byte-identical SQL.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Union:
		return c.compileUnion(query)
	case *queryir.Union:
		return c.compileUnion(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// CompileCount converts a query to a statement returning the number of
// matching rows as a single integer. Projection, ordering and slicing are
// ignored; a union counts the sum of its segments.
func (c *SQLCompiler) CompileCount(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		sql, params := c.countSelect(query)
		return sql, params, nil
	case *queryir.Select:
		sql, params := c.countSelect(*query)
		return sql, params, nil
	case queryir.Union:
		return c.countUnion(query)
	case *queryir.Union:
		return c.countUnion(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles one Select including its ORDER BY and window.
func (c *SQLCompiler) compileSelect(sel queryir.Select) (string, []any, error) {
	body, params := c.selectBody(sel)
	order := c.orderClause(sel.Order, queryir.Aliases(sel.Columns), func(name string) string {
		return c.unprojected(sel, name)
	})
	params = append(params, sel.Limit, sel.Offset)
	return body + " ORDER BY " + order + " LIMIT ? OFFSET ?", params, nil
}

// compileUnion compiles segments joined by UNION ALL with a single trailing
// ORDER BY and window.
func (c *SQLCompiler) compileUnion(u queryir.Union) (string, []any, error) {
	var (
		parts  []string
		params []any
	)
	for _, seg := range u.Segments {
		body, p := c.selectBody(seg)
		parts = append(parts, body)
		params = append(params, p...)
	}
	// Validate guarantees every order term is projected.
	order := c.orderClause(u.Order, queryir.Aliases(u.Segments[0].Columns), func(string) string { return "" })
	params = append(params, u.Limit, u.Offset)
	return strings.Join(parts, " UNION ALL ") + " ORDER BY " + order + " LIMIT ? OFFSET ?", params, nil
}

func (c *SQLCompiler) countSelect(sel queryir.Select) (string, []any) {
	from := sel.Table
	if directMatch(sel.Where) {
		from += ", " + sel.FTSTable
	}
	where, params := c.whereClause(sel, directMatch(sel.Where))
	return "SELECT COUNT(*) FROM " + from + where, params
}

func (c *SQLCompiler) countUnion(u queryir.Union) (string, []any, error) {
	var (
		parts  []string
		params []any
	)
	for _, seg := range u.Segments {
		sql, p := c.countSelect(seg)
		parts = append(parts, strings.Replace(sql, "COUNT(*)", "COUNT(*) AS n", 1))
		params = append(params, p...)
	}
	return "SELECT SUM(n) FROM (" + strings.Join(parts, " UNION ALL ") + ")", params, nil
}

// selectBody renders SELECT ... FROM ... WHERE ... without ORDER BY.
func (c *SQLCompiler) selectBody(sel queryir.Select) (string, []any) {
	joined := needsJoin(sel)

	cols, params := c.compileColumns(sel, joined)
	from := sel.Table
	if joined {
		from += ", " + sel.FTSTable
	}
	where, whereParams := c.whereClause(sel, joined)
	params = append(params, whereParams...)

	return fmt.Sprintf("SELECT %s FROM %s%s", cols, from, where), params
}

// compileColumns renders the projection. Marker strings and snippet
// lengths are bound, so they precede the WHERE parameters.
func (c *SQLCompiler) compileColumns(sel queryir.Select, joined bool) (string, []any) {
	var (
		parts  []string
		params []any
	)
	for _, col := range sel.Columns {
		switch v := col.(type) {
		case queryir.Field:
			parts = append(parts, fmt.Sprintf("%s.%s AS %s", sel.Table, v.Name, v.Name))
		case queryir.Rank:
			if joined && directMatch(sel.Where) {
				parts = append(parts, fmt.Sprintf("%s.rank AS %s", sel.FTSTable, v.Name))
			} else {
				parts = append(parts, "NULL AS "+v.Name)
			}
		case queryir.Highlight:
			parts = append(parts, fmt.Sprintf("highlight(%s, %d, ?, ?) AS %s", sel.FTSTable, v.Column, v.Name))
			params = append(params, v.Start, v.End)
		case queryir.Snippet:
			parts = append(parts, fmt.Sprintf("snippet(%s, %d, ?, ?, ?, ?) AS %s", sel.FTSTable, v.Column, v.Name))
			params = append(params, v.Before, v.After, v.Ellipsis, v.Tokens)
		}
	}
	return strings.Join(parts, ", "), params
}

// whereClause renders the WHERE clause, or "" when there is nothing to
// filter on.
//
//	AND bridge: t.id = f.rowid AND (attr) AND f MATCH ?
//	OR bridge:  ((attr) OR t.id IN (SELECT rowid FROM f WHERE f MATCH ?))
//
// SQLite cannot evaluate MATCH under OR, so the OR form matches through a
// subquery and the joined rank is unavailable.
func (c *SQLCompiler) whereClause(sel queryir.Select, joined bool) (string, []any) {
	var (
		clauses []string
		params  []any
	)
	if joined {
		clauses = append(clauses, fmt.Sprintf("%s.id = %s.rowid", sel.Table, sel.FTSTable))
	}

	attr, attrParams := joinFragments(sel.Where.Attribute)
	operand, _ := joinFragments(sel.Where.FullText)

	switch {
	case attr != "" && operand != "" && sel.Where.Bridge == queryir.Or:
		clauses = append(clauses, fmt.Sprintf("((%s) OR %s.id IN (SELECT rowid FROM %s WHERE %s MATCH ?))",
			attr, sel.Table, sel.FTSTable, sel.FTSTable))
		params = append(params, attrParams...)
		params = append(params, operand)
	default:
		if attr != "" {
			clauses = append(clauses, "("+attr+")")
			params = append(params, attrParams...)
		}
		if operand != "" {
			clauses = append(clauses, sel.FTSTable+" MATCH ?")
			params = append(params, operand)
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), params
}

// orderClause renders ORDER BY terms. Projected names are referenced by
// alias; others are resolved by fallback, and dropped when it returns "".
// The id tie breaker is appended unless already ordered on.
func (c *SQLCompiler) orderClause(order []queryir.Order, aliases []string, fallback func(string) string) string {
	var (
		terms   []string
		hasID   bool
		inAlias = map[string]bool{}
	)
	for _, a := range aliases {
		inAlias[a] = true
	}

	ref := func(name string) string {
		if inAlias[name] {
			return name
		}
		return fallback(name)
	}

	for _, o := range order {
		r := ref(o.Name)
		if r == "" {
			continue
		}
		if o.Name == IDColumn {
			hasID = true
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms = append(terms, r+" "+dir)
	}
	if !hasID {
		if r := ref(IDColumn); r != "" {
			terms = append(terms, r+" ASC")
		}
	}
	if len(terms) == 0 {
		// Only reachable for a union that projects no id.
		return "1"
	}
	return strings.Join(terms, ", ")
}

// unprojected resolves an order term that is not in the projection of a
// single Select.
func (c *SQLCompiler) unprojected(sel queryir.Select, name string) string {
	if name == "rank" {
		if directMatch(sel.Where) {
			return sel.FTSTable + ".rank"
		}
		return ""
	}
	return sel.Table + "." + name
}

// joinFragments joins fragments with their connectives; the first
// fragment's connective is ignored.
func joinFragments(frags []queryir.Fragment) (string, []any) {
	var (
		b      strings.Builder
		params []any
	)
	for i, f := range frags {
		if i > 0 {
			conn := f.Conn
			if conn == queryir.None {
				conn = queryir.And
			}
			b.WriteString(" " + conn.String() + " ")
		}
		b.WriteString(f.SQL)
		params = append(params, f.Params...)
	}
	return b.String(), params
}

// directMatch reports whether the MATCH is joined by AND, so the full-text
// table's row state (rank, highlight) belongs to the result rows.
func directMatch(w queryir.Where) bool {
	return len(w.FullText) > 0 && (len(w.Attribute) == 0 || w.Bridge != queryir.Or)
}

func needsJoin(sel queryir.Select) bool {
	if directMatch(sel.Where) {
		return true
	}
	for _, col := range sel.Columns {
		switch col.(type) {
		case queryir.Highlight, queryir.Snippet:
			return true
		}
	}
	return false
}
