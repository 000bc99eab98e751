package ftsq

import (
	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/qexpr"
)

// SearchArg is accepted by Index.Search: Lookups or an *Expr.
type SearchArg interface {
	searchArg()
}

// Lookups maps qualified keywords to values:
//
//	ftsq.Lookups{"text__allow_prefix": "fran*", "year__gte": 2000}
//
// A key is a field name optionally followed by lookup names, each
// separated by a double underscore.
type Lookups map[string]any

func (Lookups) searchArg() {}

// Expr is a boolean expression over single lookups.
type Expr struct {
	x *qexpr.Expr
}

func (*Expr) searchArg() {}

// Q wraps exactly one lookup. Passing more or fewer keys produces an
// expression that fails with a QueryError when searched.
func Q(kw Lookups) *Expr {
	return &Expr{x: qexpr.Q(lookup.Lookups(kw))}
}

// And returns e AND o. Neither operand is modified.
func (e *Expr) And(o *Expr) *Expr {
	return &Expr{x: e.inner().And(o.inner())}
}

// Or returns e OR o. Neither operand is modified.
func (e *Expr) Or(o *Expr) *Expr {
	return &Expr{x: e.inner().Or(o.inner())}
}

// String renders the expression's keys and connectives.
func (e *Expr) String() string {
	return e.inner().String()
}

func (e *Expr) inner() *qexpr.Expr {
	if e == nil {
		return nil
	}
	return e.x
}
