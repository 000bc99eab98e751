package queryir

// Query represents one compilable statement.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: one SELECT over a document table and its full-text table
//   - Union: a UNION ALL compound of Selects with one trailing ORDER/LIMIT
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Column represents one projected column.
//
// This is a sealed interface - only types in this package implement it.
//
// Column types:
//   - Field: a document column
//   - Rank: the engine's relevance score
//   - Highlight: a full-text field with matches wrapped in markers
//   - Snippet: a short excerpt of a full-text field around matches
//
// Every column is aliased to its Name in the result set.
type Column interface {
	columnNode() // Marker method - seals interface to this package
	Alias() string
}

// Connective joins a predicate to the previous one.
type Connective int

const (
	// None marks the first predicate of a sequence.
	None Connective = iota
	And
	Or
)

// String returns the SQL keyword ("" for None).
func (c Connective) String() string {
	switch c {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return ""
	}
}

// Select represents a search over one index.
//
// Semantics:
//
//	SELECT <columns> FROM <table> [, <fts>]
//	WHERE <table>.id = <fts>.rowid AND (<attribute>) AND <fts> MATCH ?
//	ORDER BY <order> LIMIT ? OFFSET ?
//
// The full-text table is joined whenever the statement needs the engine's
// per-row state: a MATCH joined by AND, or a highlight/snippet column.
type Select struct {
	Table    string // Document table (e.g., "movie")
	FTSTable string // Full-text table (e.g., "movie_fts")
	Columns  []Column
	Where    Where
	Order    []Order
	Limit    int
	Offset   int
}

func (Select) queryNode() {}

// Union represents a UNION ALL compound. Order, Limit and Offset apply to
// the compound as a whole; the segments carry none of their own.
type Union struct {
	Segments []Select
	Order    []Order
	Limit    int
	Offset   int
}

func (Union) queryNode() {}

// Where holds the predicates of one Select.
type Where struct {
	Attribute []Fragment
	FullText  []Fragment
	// Bridge joins the attribute and full-text sequences when both are
	// present.
	Bridge Connective
}

// Empty reports whether there are no predicates.
func (w Where) Empty() bool {
	return len(w.Attribute) == 0 && len(w.FullText) == 0
}

// Fragment is one rendered predicate. For attribute fragments SQL is a
// boolean SQL expression with placeholders for Params; for full-text
// fragments SQL is a MATCH operand and Params is empty.
type Fragment struct {
	Conn   Connective
	SQL    string
	Params []any
}

// Order is one ORDER BY term.
type Order struct {
	Name string
	Desc bool
}

// Field is a document column.
type Field struct {
	Name string
}

func (Field) columnNode() {}

// Alias implements Column.
func (f Field) Alias() string { return f.Name }

// Rank is the relevance score; NULL when the row was not produced by a
// joined MATCH.
type Rank struct {
	Name string
}

func (Rank) columnNode() {}

// Alias implements Column.
func (r Rank) Alias() string { return r.Name }

// Highlight replaces a full-text field with its highlighted text.
type Highlight struct {
	Name   string
	Column int // Zero-based column of Name in the full-text table
	Start  string
	End    string
}

func (Highlight) columnNode() {}

// Alias implements Column.
func (h Highlight) Alias() string { return h.Name }

// Snippet replaces a full-text field with an excerpt around matches.
type Snippet struct {
	Name     string
	Column   int
	Before   string
	After    string
	Ellipsis string
	Tokens   int
}

func (Snippet) columnNode() {}

// Alias implements Column.
func (s Snippet) Alias() string { return s.Name }
