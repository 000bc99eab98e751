package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/ftsq/internal/errs"
)

// MaxSnippetTokens bounds Snippet.Tokens (exclusive), matching the engine.
const MaxSnippetTokens = 64

// Validate checks the structural rules compilers rely on.
//
// Rules:
//  1. Every Select names its tables and projects at least one column
//  2. Snippet lengths are in (0, MaxSnippetTokens)
//  3. Limit and Offset are not negative
//  4. Union segments project the same aliases, in the same order
//  5. Union order terms reference projected aliases
//
// All violations are collected into one QueryError.
//
// Validate is a pure function with no side effects.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	if len(v.issues) == 0 {
		return nil
	}
	return errs.Query("invalid statement: %s", strings.Join(v.issues, "; "))
}

// validator accumulates issues during traversal.
type validator struct {
	issues []string
}

func (v *validator) addIssue(format string, args ...any) {
	v.issues = append(v.issues, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
		v.validateWindow(query.Limit, query.Offset)
	case *Select:
		v.validateQuery(*query)
	case Union:
		v.validateUnion(query)
	case *Union:
		v.validateUnion(*query)
	case nil:
		v.addIssue("nil query")
	default:
		v.addIssue("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.Table == "" || sel.FTSTable == "" {
		v.addIssue("select without table")
	}
	if len(sel.Columns) == 0 {
		v.addIssue("select on %q projects no columns", sel.Table)
	}
	for _, c := range sel.Columns {
		if s, ok := c.(Snippet); ok && (s.Tokens <= 0 || s.Tokens >= MaxSnippetTokens) {
			v.addIssue("snippet length of %q must be greater than 0 and lower than %d, got %d",
				s.Name, MaxSnippetTokens, s.Tokens)
		}
	}
	for _, f := range sel.Where.Attribute {
		if f.SQL == "" {
			v.addIssue("empty attribute predicate")
		}
	}
	if len(sel.Where.Attribute) > 0 && len(sel.Where.FullText) > 0 && sel.Where.Bridge == None {
		v.addIssue("attribute and full-text predicates without a bridge")
	}
}

func (v *validator) validateWindow(limit, offset int) {
	if limit < 0 {
		v.addIssue("negative limit %d", limit)
	}
	if offset < 0 {
		v.addIssue("negative offset %d", offset)
	}
}

func (v *validator) validateUnion(u Union) {
	if len(u.Segments) == 0 {
		v.addIssue("union without segments")
		return
	}
	v.validateWindow(u.Limit, u.Offset)

	aliases := Aliases(u.Segments[0].Columns)
	for i, seg := range u.Segments {
		v.validateSelect(seg)
		if got := Aliases(seg.Columns); strings.Join(got, ",") != strings.Join(aliases, ",") {
			v.addIssue("union segment %d projects %v, want %v", i, got, aliases)
		}
	}
	for _, o := range u.Order {
		if !contains(aliases, o.Name) {
			v.addIssue("union cannot be ordered by %q: it is not selected", o.Name)
		}
	}
}

// Aliases returns the result column names of cols.
func Aliases(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Alias()
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
