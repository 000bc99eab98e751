// Package schema declares the document layout of an index.
//
// A Schema is built once, by listing field specifications in order, and is
// immutable afterwards. Validation happens entirely at build time: field
// names are checked against SQL identifier rules and a reserved-word set,
// identity and full-text flags are checked for consistency, and the
// tokenizer configuration is compiled. Nothing is discovered at runtime.
//
// Every schema carries two implicit fields: "id", the integer primary key
// of the document relation, and the hidden "rank" column exposed by the
// full-text index.
package schema
