// Package qexpr implements the boolean query algebra: single-lookup
// expressions combined with AND and OR.
//
// An Expr is a flat, ordered list of nodes. Each node but the first carries
// the connective that joins it to the node before it. Combining two
// expressions never mutates either operand.
//
// Because the engine evaluates full-text and attribute predicates in
// different places, Split separates the nodes into per-domain sequences and
// picks a single connective, the bridge, that joins the two sequences.
package qexpr

import (
	"sort"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/queryir"
)

// Node is one lookup with its connective.
type Node struct {
	Key   string
	Value any
	Conn  queryir.Connective
}

// Expr is an immutable boolean expression over lookups.
type Expr struct {
	nodes []Node
	err   error
}

// Q wraps a single lookup. Any other number of keys yields an expression
// whose error is reported when it is used.
func Q(kw lookup.Lookups) *Expr {
	if len(kw) != 1 {
		keys := make([]string, 0, len(kw))
		for k := range kw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return &Expr{err: errs.Query("Q expects exactly one lookup, got %d %v", len(kw), keys)}
	}
	for k, v := range kw {
		return &Expr{nodes: []Node{{Key: k, Value: v}}}
	}
	return nil
}

// And returns e AND o.
func (e *Expr) And(o *Expr) *Expr { return e.combine(o, queryir.And) }

// Or returns e OR o.
func (e *Expr) Or(o *Expr) *Expr { return e.combine(o, queryir.Or) }

func (e *Expr) combine(o *Expr, conn queryir.Connective) *Expr {
	if e == nil || o == nil {
		return &Expr{err: errs.Query("cannot combine a nil expression")}
	}
	out := &Expr{err: e.err}
	if out.err == nil {
		out.err = o.err
	}
	out.nodes = make([]Node, 0, len(e.nodes)+len(o.nodes))
	out.nodes = append(out.nodes, e.nodes...)
	for i, n := range o.nodes {
		if i == 0 && n.Conn == queryir.None {
			n.Conn = conn
		}
		out.nodes = append(out.nodes, n)
	}
	return out
}

// Nodes returns a copy of the nodes in order.
func (e *Expr) Nodes() []Node {
	if e == nil {
		return nil
	}
	return append([]Node(nil), e.nodes...)
}

// Err returns the deferred construction error, if any.
func (e *Expr) Err() error {
	if e == nil {
		return errs.Query("nil expression")
	}
	return e.err
}

// String renders the expression for logs, e.g. "title AND year__gte".
func (e *Expr) String() string {
	if e == nil || e.err != nil {
		return "<invalid>"
	}
	var s string
	for i, n := range e.nodes {
		if i > 0 {
			s += " " + n.Conn.String() + " "
		}
		s += n.Key
	}
	return s
}

// Domains is the result of Split.
type Domains struct {
	FullText  []Node
	Attribute []Node
	// Bridge joins the two sequences; None unless both are non-empty.
	Bridge queryir.Connective
}

// Split separates nodes by domain, keeping order. The first node of
// whichever domain appears second donates its connective as the bridge;
// the first node of each sequence carries no connective and every other
// node keeps its own.
func Split(nodes []Node, fullText func(Node) bool) Domains {
	var (
		d     Domains
		first = -1 // domain of nodes[0]: 1 full-text, 0 attribute
	)
	for i, n := range nodes {
		ft := fullText(n)
		if i == 0 {
			first = boolInt(ft)
		}
		seq := &d.Attribute
		if ft {
			seq = &d.FullText
		}
		if len(*seq) == 0 {
			if boolInt(ft) != first {
				d.Bridge = n.Conn
			}
			n.Conn = queryir.None
		}
		*seq = append(*seq, n)
	}
	return d
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Fragments pairs each node's connective with its rendered fragment.
func Fragments(nodes []Node, render func(Node) (string, []any)) []queryir.Fragment {
	out := make([]queryir.Fragment, 0, len(nodes))
	for _, n := range nodes {
		sql, params := render(n)
		out = append(out, queryir.Fragment{Conn: n.Conn, SQL: sql, Params: params})
	}
	return out
}
