package filter

import (
	"fmt"

	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/schema"
	"github.com/roach88/ftsq/internal/tokenize"
)

// Filter is one rendered predicate over a single field.
//
// This is a sealed interface - only types in this package implement it.
type Filter interface {
	filterNode()

	// FieldName returns the filtered field.
	FieldName() string

	// FullText reports whether the filter belongs to the full-text domain.
	FullText() bool
}

// Match is a full-text filter.
type Match struct {
	Field  schema.Field
	Lookup lookup.Lookup
}

func (Match) filterNode() {}

// FieldName implements Filter.
func (m Match) FieldName() string { return m.Field.Name }

// FullText implements Filter.
func (Match) FullText() bool { return true }

// Operand renders the column-filtered MATCH operand, e.g.
//
//	text : ("fox" "jumped")
func (m Match) Operand(tok *tokenize.Tokenizer) string {
	return fmt.Sprintf("%s : (%s)", m.Field.Name, Escape(valueText(m.Lookup.Value), tok, SyntaxFor(m.Lookup)))
}

// Boolean is an attribute comparison.
type Boolean struct {
	Field schema.Field
	Op    string
	Value any
}

func (Boolean) filterNode() {}

// FieldName implements Filter.
func (b Boolean) FieldName() string { return b.Field.Name }

// FullText implements Filter.
func (Boolean) FullText() bool { return false }

// Render returns "table.col OP ?" and its bound value.
func (b Boolean) Render(table string) (string, []any) {
	return fmt.Sprintf("%s.%s %s ?", table, b.Field.Name, b.Op), []any{b.Field.Normalize(b.Value)}
}

// Date is an attribute comparison on a date or datetime field.
type Date struct {
	Boolean
	// Part is the strftime specifier of the extracted component ("%Y"), or
	// "" to compare the stored value directly.
	Part string
}

// Render returns the comparison, casting the extracted part to an integer
// when a date-part lookup was given.
func (d Date) Render(table string) (string, []any) {
	if d.Part == "" {
		return d.Boolean.Render(table)
	}
	return fmt.Sprintf("CAST(strftime('%s', %s.%s) AS INTEGER) %s ?", d.Part, table, d.Field.Name, d.Op),
		[]any{d.Value}
}

// Attribute is implemented by Boolean and Date.
type Attribute interface {
	Filter
	Render(table string) (string, []any)
}

var (
	_ Attribute = Boolean{}
	_ Attribute = Date{}
)

// variant tags the closed set of filter kinds.
type variant int

const (
	variantMatch variant = iota
	variantBoolean
	variantDate
)

var variantByKind = map[schema.Kind]variant{
	schema.KindInteger:  variantBoolean,
	schema.KindText:     variantBoolean,
	schema.KindReal:     variantBoolean,
	schema.KindBlob:     variantBoolean,
	schema.KindDate:     variantDate,
	schema.KindDatetime: variantDate,
}

var builders = map[variant]func(schema.Field, lookup.Lookup) Filter{
	variantMatch: func(f schema.Field, l lookup.Lookup) Filter {
		return Match{Field: f, Lookup: l}
	},
	variantBoolean: func(f schema.Field, l lookup.Lookup) Filter {
		return newBoolean(f, l)
	},
	variantDate: func(f schema.Field, l lookup.Lookup) Filter {
		return Date{Boolean: newBoolean(f, l), Part: dateParts[l.First(lookup.ClassDatePart)]}
	},
}

var operators = map[string]string{
	lookup.Gt:  ">",
	lookup.Gte: ">=",
	lookup.Lt:  "<",
	lookup.Lte: "<=",
}

var dateParts = map[string]string{
	lookup.Year:   "%Y",
	lookup.Month:  "%m",
	lookup.Day:    "%d",
	lookup.Hour:   "%H",
	lookup.Minute: "%M",
}

func newBoolean(f schema.Field, l lookup.Lookup) Boolean {
	op := "="
	if o, ok := operators[l.First(lookup.ClassComparison)]; ok {
		op = o
	}
	return Boolean{Field: f, Op: op, Value: l.Value}
}

// For builds the filter for a lookup already validated against f.
func For(f schema.Field, l lookup.Lookup) Filter {
	v := variantByKind[f.Kind]
	if f.FullText {
		v = variantMatch
	}
	return builders[v](f, l)
}

// FromArguments builds one filter per lookup, in argument order.
func FromArguments(args []lookup.Argument) []Filter {
	var out []Filter
	for _, a := range args {
		for _, l := range a.Lookups {
			out = append(out, For(a.Field, l))
		}
	}
	return out
}

func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
