// Package tokenize emulates the word-splitting rules of the SQLite FTS5
// unicode61 tokenizer in-process.
//
// The query layer needs to know how the engine will split a string before
// it sends it: MATCH operand escaping drops words that produce no tokens,
// autocomplete expands the last token into a prefix query, and the spell
// checker generates candidates per token. If the emulator and the engine
// disagree, escaping and expansion silently diverge from what the engine
// matches, so both are configured from the same Config value
// (Config.FTS5Options renders the tokenize argument used in the DDL).
//
// Classification precedence, highest first:
//
//  1. explicit separator characters
//  2. explicit extra token characters
//  3. Unicode general category membership (default "L* N* Co")
//
// Tokens are case folded and, when RemoveDiacritics is non-zero, stripped of
// combining marks.
package tokenize
