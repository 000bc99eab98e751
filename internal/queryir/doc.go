// Package queryir provides the statement intermediate representation (IR)
// built by the query builder and compiled to SQL by querysql.
//
// The IR is the boundary between the typed query surface (lookups, Q
// expressions, projections) and the engine's SQL dialect:
//
//	[Lookups / Q] → [filter] → [Query IR] → [querysql] → SQL + params
//
// SEALED INTERFACES:
//
// Query and Column are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so compilers can switch over
// them exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // one statement
//	case Union:
//	    // UNION ALL compound
//	}
//
// PREDICATES:
//
// A Where holds two predicate sequences, one per domain. Attribute
// fragments are already-rendered comparisons with bound values; full-text
// fragments are MATCH operands that are combined into a single MATCH
// parameter. Each fragment carries the connective joining it to the
// previous fragment of the same sequence. Bridge joins the two sequences.
//
// Values are never interpolated. Every literal, including highlight
// markers and LIMIT/OFFSET, is a bound parameter.
package queryir
