package filter

import (
	"strings"

	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/tokenize"
)

// Syntax is the set of MATCH control features enabled for one operand.
// NEAR groups are never enabled.
type Syntax struct {
	Boolean  bool
	Negation bool
	Prefix   bool
	Initial  bool
}

// SyntaxFor reads the modifier lookups of l.
func SyntaxFor(l lookup.Lookup) Syntax {
	return Syntax{
		Boolean:  l.Has(lookup.AllowBoolean),
		Negation: l.Has(lookup.AllowNegation),
		Prefix:   l.Has(lookup.AllowPrefix),
		Initial:  l.Has(lookup.AllowInitialToken),
	}
}

// EmptyOperand matches no document.
const EmptyOperand = `""`

// Quote renders s as an FTS5 string.
func Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// span is one piece of raw input: either a quoted phrase (text unescaped)
// or plain text between phrases.
type span struct {
	text   string
	phrase bool
	caret  bool
	star   bool
}

// atomKind classifies one rendered piece of an operand.
type atomKind int

const (
	atomTerm atomKind = iota
	atomOperator
	atomOpen
	atomClose
)

type atom struct {
	kind atomKind
	text string
}

// Escape renders raw as a MATCH operand with only the features in syn
// enabled.
func Escape(raw string, tok *tokenize.Tokenizer, syn Syntax) string {
	var (
		atoms []atom
		depth int
	)
	for _, sp := range split(raw, syn) {
		if sp.phrase {
			if len(tok.Tokenize(sp.text)) == 0 {
				continue
			}
			item := Quote(sp.text)
			if sp.caret {
				item = "^" + item
			}
			if sp.star {
				item += "*"
			}
			atoms = append(atoms, atom{kind: atomTerm, text: item})
			continue
		}
		for _, w := range strings.Fields(sp.text) {
			atoms = append(atoms, escapeWord(w, tok, syn, &depth)...)
		}
	}
	out, _ := sequence(atoms, 0, false)
	if len(out) == 0 {
		return EmptyOperand
	}
	return strings.Join(out, " ")
}

// sequence renders atoms from i until the close of the current group. An
// operator is kept only between two operands and a group only when it
// holds one, so the result always parses. Groups left open are closed.
func sequence(atoms []atom, i int, nested bool) ([]string, int) {
	var (
		out []string
		op  string
	)
	operand := func(item string) {
		if len(out) > 0 && op != "" {
			out = append(out, op)
		}
		op = ""
		out = append(out, item)
	}
	for i < len(atoms) {
		a := atoms[i]
		i++
		switch a.kind {
		case atomTerm:
			operand(a.text)
		case atomOperator:
			if len(out) > 0 && op == "" {
				op = a.text
			}
		case atomOpen:
			var inner []string
			inner, i = sequence(atoms, i, true)
			if len(inner) > 0 {
				operand("(" + strings.Join(inner, " ") + ")")
			}
		case atomClose:
			if nested {
				return out, i
			}
		}
	}
	return out, i
}

// split cuts raw into plain and phrase spans. A doubled quote inside a
// phrase is an escaped quote. An unterminated phrase is treated as plain
// text, where its quote character is escaped like any other.
func split(raw string, syn Syntax) []span {
	var (
		spans []span
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			spans = append(spans, span{text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(raw); {
		if raw[i] != '"' {
			plain.WriteByte(raw[i])
			i++
			continue
		}
		text, end, ok := readPhrase(raw, i+1)
		if !ok {
			plain.WriteString(raw[i:])
			break
		}
		sp := span{text: text, phrase: true}
		if syn.Initial {
			if p := plain.String(); strings.HasSuffix(p, "^") {
				plain.Reset()
				plain.WriteString(p[:len(p)-1])
				sp.caret = true
			}
		}
		i = end
		if syn.Prefix && i < len(raw) && raw[i] == '*' {
			sp.star = true
			i++
		}
		flush()
		spans = append(spans, sp)
	}
	flush()
	return spans
}

// readPhrase scans from just after an opening quote and returns the
// unescaped phrase and the index after its closing quote.
func readPhrase(raw string, start int) (string, int, bool) {
	var b strings.Builder
	for i := start; i < len(raw); i++ {
		if raw[i] != '"' {
			b.WriteByte(raw[i])
			continue
		}
		if i+1 < len(raw) && raw[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		return b.String(), i + 1, true
	}
	return "", 0, false
}

// escapeWord renders one plain word. depth tracks open groups so a closing
// parenthesis is only treated as syntax when it closes one.
func escapeWord(w string, tok *tokenize.Tokenizer, syn Syntax, depth *int) []atom {
	var open, closing int
	core := w
	if syn.Boolean {
		for strings.HasPrefix(core, "(") {
			open++
			core = core[1:]
			*depth++
		}
		for *depth > 0 && strings.HasSuffix(core, ")") {
			closing++
			core = core[:len(core)-1]
			*depth--
		}
	}

	var body []atom
	switch {
	case syn.Boolean && (core == "AND" || core == "OR"), syn.Negation && core == "NOT":
		body = []atom{{kind: atomOperator, text: core}}
	default:
		var caret, star string
		if syn.Initial && strings.HasPrefix(core, "^") {
			caret = "^"
			core = core[1:]
		}
		if syn.Prefix && strings.HasSuffix(core, "*") {
			star = "*"
			core = strings.TrimRight(core, "*")
		}
		if len(tok.Tokenize(core)) > 0 {
			body = []atom{{kind: atomTerm, text: caret + Quote(core) + star}}
		}
	}

	atoms := make([]atom, 0, open+len(body)+closing)
	for range open {
		atoms = append(atoms, atom{kind: atomOpen})
	}
	atoms = append(atoms, body...)
	for range closing {
		atoms = append(atoms, atom{kind: atomClose})
	}
	return atoms
}
