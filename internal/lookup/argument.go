package lookup

import (
	"sort"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/schema"
)

// Lookups maps qualified keywords to values, e.g.
//
//	Lookups{"text__allow_prefix": "fran*", "price__gte": 3}
type Lookups map[string]any

// Argument pairs a validated field with its lookups.
type Argument struct {
	Field   schema.Field
	Lookups []Lookup
}

// Mode selects the rules Resolve applies.
type Mode int

const (
	// ModeSearch allows lookup names and partial field sets.
	ModeSearch Mode = iota
	// ModeInsert forbids lookup names and requires every declared field
	// that has no default.
	ModeInsert
	// ModeUpdate forbids lookup names; fields may be partial.
	ModeUpdate
)

// Resolve parses and validates every key of kw against s and groups the
// lookups by field in schema order. Within a field, lookups are ordered by
// key so rendering is deterministic.
func Resolve(s *schema.Schema, kw Lookups, mode Mode) ([]Argument, error) {
	keys := make([]string, 0, len(kw))
	for k := range kw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	grouped := map[string][]Lookup{}
	for _, k := range keys {
		l, err := Parse(k, kw[k])
		if err != nil {
			return nil, err
		}
		if mode != ModeSearch && l.Key != l.Field {
			return nil, errs.Field(l.Field, "lookups are not allowed in the context of inserts and updates (%q)", k)
		}
		f, ok := s.Field(l.Field)
		if !ok {
			return nil, errs.Field(l.Field, "unknown field %q - it is not defined in schema %q", l.Field, s.Name())
		}
		if f.Hidden {
			return nil, errs.Field(l.Field, "field %q cannot be filtered", l.Field)
		}
		if mode != ModeSearch && f.Implicit() {
			return nil, errs.Field(l.Field, "field %q is managed by the index", l.Field)
		}
		if err := Validate(f, l); err != nil {
			return nil, err
		}
		grouped[f.Name] = append(grouped[f.Name], l)
	}

	var args []Argument
	for _, f := range s.Fields() {
		ls, referenced := grouped[f.Name]
		if !referenced {
			if mode == ModeInsert && !f.Implicit() {
				if f.Default == nil {
					return nil, errs.Field(f.Name, "missing field %q in keyword arguments", f.Name)
				}
				ls = []Lookup{{Key: f.Name, Field: f.Name, Names: []string{Eq}, Value: f.Default()}}
			} else {
				continue
			}
		}
		args = append(args, Argument{Field: f, Lookups: ls})
	}
	return args, nil
}

// Values returns the column names and normalized values of write arguments.
func Values(args []Argument) ([]string, []any) {
	cols := make([]string, 0, len(args))
	vals := make([]any, 0, len(args))
	for _, a := range args {
		cols = append(cols, a.Field.Name)
		vals = append(vals, a.Field.Normalize(a.Lookups[0].Value))
	}
	return cols, vals
}
