// Package ftsq is a typed query layer over SQLite FTS5.
//
// A Schema declares the fields of a document; searchable text fields are
// indexed for full-text search, the others are plain attributes. Queries
// are built from keyword lookups or composable Q expressions and rendered
// to one parameterized statement:
//
//	idx, err := ftsq.Open(ctx, "movies.db", s, ftsq.WithWriteable())
//	...
//	docs, err := idx.Search(ftsq.Lookups{
//		"plot__allow_prefix": "alie*",
//		"year__gte":          1979,
//	}).OrderBy("-year").All(ctx)
//
// A lookup key is a field name optionally followed by lookup names, each
// separated by "__". Full-text lookups treat every control keyword and
// operator as literal text unless a modifier enables it:
// allow_boolean (AND, OR, grouping), allow_negation (NOT), allow_prefix
// (trailing *) and allow_initial_token (leading ^). Attribute lookups
// compare (gt, gte, lt, lte) and date lookups extract a component first
// (year, month, day, hour, minute).
//
// Writers are serialized per index by an arbiter shared by the process;
// readers never wait for writers. Every write runs in a transaction that is
// rolled back if it fails or panics.
package ftsq
