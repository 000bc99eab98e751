package tokenize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultCategories is the unicode61 default category set.
var DefaultCategories = []string{"L*", "N*", "Co"}

// Config mirrors the unicode61 tokenizer options.
//
// The zero value is NOT the engine default; use DefaultConfig.
type Config struct {
	// RemoveDiacritics is 0, 1 or 2 (1 and 2 fold identically here).
	RemoveDiacritics int `yaml:"remove_diacritics" json:"remove_diacritics"`

	// Categories lists general categories ("L*", "Nd", "Co") whose members
	// are token characters. Empty means DefaultCategories.
	Categories []string `yaml:"categories" json:"categories"`

	// TokenChars are extra characters treated as token characters.
	TokenChars string `yaml:"tokenchars" json:"tokenchars"`

	// Separators are extra characters treated as separators.
	Separators string `yaml:"separators" json:"separators"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		RemoveDiacritics: 1,
		Categories:       append([]string(nil), DefaultCategories...),
	}
}

// Token is one token produced by Tokenize.
type Token struct {
	// Text is the folded token as the engine indexes it.
	Text string

	// Start and End are byte offsets of the token in the input.
	Start int
	End   int
}

// Tokenizer classifies characters according to a Config.
// A Tokenizer is immutable and safe for concurrent use.
type Tokenizer struct {
	cfg        Config
	tables     []*unicode.RangeTable
	tokenChars map[rune]bool
	separators map[rune]bool
}

// New validates cfg and returns a Tokenizer.
func New(cfg Config) (*Tokenizer, error) {
	if cfg.RemoveDiacritics < 0 || cfg.RemoveDiacritics > 2 {
		return nil, fmt.Errorf("remove_diacritics must be 0, 1 or 2, got %d", cfg.RemoveDiacritics)
	}
	cats := cfg.Categories
	if len(cats) == 0 {
		cats = DefaultCategories
	}

	t := &Tokenizer{
		cfg:        cfg,
		tokenChars: runeSet(cfg.TokenChars),
		separators: runeSet(cfg.Separators),
	}
	for _, c := range cats {
		table, err := categoryTable(c)
		if err != nil {
			return nil, err
		}
		t.tables = append(t.tables, table)
	}
	return t, nil
}

// MustNew is New for configurations known to be valid.
func MustNew(cfg Config) *Tokenizer {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns a Tokenizer with the engine defaults.
func Default() *Tokenizer {
	return MustNew(DefaultConfig())
}

// Config returns the configuration the tokenizer was built from.
func (t *Tokenizer) Config() Config {
	return t.cfg
}

// IsTokenChar reports whether r is a token character.
func (t *Tokenizer) IsTokenChar(r rune) bool {
	if t.separators[r] {
		return false
	}
	if t.tokenChars[r] {
		return true
	}
	// Combining marks are folded away rather than splitting the token.
	if t.cfg.RemoveDiacritics > 0 && unicode.Is(unicode.Mn, r) {
		return true
	}
	for _, table := range t.tables {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}

// Tokenize splits text into folded tokens in input order.
func (t *Tokenizer) Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if r == utf8.RuneError {
			// Invalid UTF-8 is a separator.
			if start >= 0 {
				tokens = t.appendToken(tokens, text, start, i)
				start = -1
			}
			continue
		}
		if t.IsTokenChar(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = t.appendToken(tokens, text, start, i)
			start = -1
		}
	}
	if start >= 0 {
		tokens = t.appendToken(tokens, text, start, len(text))
	}
	return tokens
}

// Words returns just the folded token texts, nil when text has none.
func (t *Tokenizer) Words(text string) []string {
	tokens := t.Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = tok.Text
	}
	return words
}

func (t *Tokenizer) appendToken(tokens []Token, text string, start, end int) []Token {
	folded := t.Fold(text[start:end])
	if folded == "" {
		return tokens
	}
	return append(tokens, Token{Text: folded, Start: start, End: end})
}

// Fold applies case folding and, if configured, diacritic removal.
func (t *Tokenizer) Fold(s string) string {
	s = strings.ToLower(s)
	if t.cfg.RemoveDiacritics == 0 {
		return s
	}
	// transform.Chain keeps state; build one per call.
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(chain, s)
	if err != nil {
		return s
	}
	return out
}

// FTS5Options renders the value of the FTS5 tokenize option, e.g.
//
//	unicode61 remove_diacritics 1 tokenchars '-_'
func (c Config) FTS5Options() string {
	parts := []string{"unicode61", "remove_diacritics", fmt.Sprintf("%d", c.RemoveDiacritics)}
	if len(c.Categories) > 0 {
		parts = append(parts, "categories", quoteArg(strings.Join(c.Categories, " ")))
	}
	if c.TokenChars != "" {
		parts = append(parts, "tokenchars", quoteArg(c.TokenChars))
	}
	if c.Separators != "" {
		parts = append(parts, "separators", quoteArg(c.Separators))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		set[r] = true
	}
	return set
}

// categoryTable resolves "L*" style wildcards and two-letter categories.
func categoryTable(name string) (*unicode.RangeTable, error) {
	key := name
	if strings.HasSuffix(name, "*") {
		key = strings.TrimSuffix(name, "*")
		if len(key) != 1 {
			return nil, fmt.Errorf("invalid category wildcard %q", name)
		}
	} else if len(name) != 2 {
		return nil, fmt.Errorf("invalid category %q", name)
	}
	table, ok := unicode.Categories[key]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", name)
	}
	return table, nil
}
