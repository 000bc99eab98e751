// Package filter turns validated lookups into fragments of the engine's
// query language.
//
// Filter is a sealed interface with three variants:
//
//	Match    full-text fields; renders one column-filtered MATCH operand
//	Boolean  attribute fields; renders "tbl.col OP ?"
//	Date     date/datetime fields; optionally compares an extracted part
//
// Variants are chosen through a table keyed by field kind (full-text fields
// always get Match), so adding a kind means adding a variant and table
// entries, not a new method on an open hierarchy.
//
// # MATCH operand escaping
//
// Raw input is treated as literal text unless a modifier lookup enables the
// corresponding syntax:
//
//	allow_boolean        AND, OR and ( ) grouping
//	allow_negation       NOT
//	allow_prefix         trailing *
//	allow_initial_token  leading ^
//
// Quoted phrase spans ("a phrase") are always honoured. Every other
// whitespace-separated word is emitted as a quoted FTS5 string, so control
// keywords and characters inside it lose their meaning. Words the tokenizer
// produces no tokens for are dropped; an operand left with no words renders
// the empty phrase "", which matches nothing.
package filter
