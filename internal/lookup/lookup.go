// Package lookup parses and validates qualified keyword lookups such as
// "price__gte" or "text__allow_boolean__allow_prefix".
//
// The registry is a static table from lookup name to the field kinds and
// the field domain (full-text or attribute) it applies to. Every lookup is
// validated against it before any statement is built; an unknown name or an
// illegal name/kind combination is a FieldError.
package lookup

import (
	"sort"
	"strings"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/schema"
)

// Separator splits a field name from its lookup names.
const Separator = "__"

// Lookup names.
const (
	Eq                = "eq"
	AllowBoolean      = "allow_boolean"
	AllowNegation     = "allow_negation"
	AllowPrefix       = "allow_prefix"
	AllowInitialToken = "allow_initial_token"
	Gt                = "gt"
	Gte               = "gte"
	Lt                = "lt"
	Lte               = "lte"
	Year              = "year"
	Month             = "month"
	Day               = "day"
	Hour              = "hour"
	Minute            = "minute"
)

// Domain restricts a lookup to full-text or attribute fields.
type Domain int

const (
	// DomainAny applies to every field.
	DomainAny Domain = iota
	// DomainFullText applies to full-text fields only.
	DomainFullText
	// DomainAttribute applies to non-full-text fields only.
	DomainAttribute
)

// Class groups lookups that are mutually exclusive within one Lookup.
type Class int

const (
	// ClassEquality is the default comparison.
	ClassEquality Class = iota
	// ClassModifier enables MATCH syntax; modifiers combine freely.
	ClassModifier
	// ClassComparison replaces the comparison operator.
	ClassComparison
	// ClassDatePart extracts a date component before comparing.
	ClassDatePart
)

// Spec is one registry entry.
type Spec struct {
	Name   string
	Class  Class
	Domain Domain
	// Kinds that may use the lookup; empty means every kind.
	Kinds []schema.Kind
}

var (
	attributeKinds = []schema.Kind{schema.KindInteger, schema.KindReal, schema.KindText, schema.KindDate, schema.KindDatetime}
	dateKinds      = []schema.Kind{schema.KindDate, schema.KindDatetime}
)

var registry = map[string]Spec{
	Eq:                {Name: Eq, Class: ClassEquality, Domain: DomainAny},
	AllowBoolean:      {Name: AllowBoolean, Class: ClassModifier, Domain: DomainFullText, Kinds: []schema.Kind{schema.KindText}},
	AllowNegation:     {Name: AllowNegation, Class: ClassModifier, Domain: DomainFullText, Kinds: []schema.Kind{schema.KindText}},
	AllowPrefix:       {Name: AllowPrefix, Class: ClassModifier, Domain: DomainFullText, Kinds: []schema.Kind{schema.KindText}},
	AllowInitialToken: {Name: AllowInitialToken, Class: ClassModifier, Domain: DomainFullText, Kinds: []schema.Kind{schema.KindText}},
	Gt:                {Name: Gt, Class: ClassComparison, Domain: DomainAttribute, Kinds: attributeKinds},
	Gte:               {Name: Gte, Class: ClassComparison, Domain: DomainAttribute, Kinds: attributeKinds},
	Lt:                {Name: Lt, Class: ClassComparison, Domain: DomainAttribute, Kinds: attributeKinds},
	Lte:               {Name: Lte, Class: ClassComparison, Domain: DomainAttribute, Kinds: attributeKinds},
	Year:              {Name: Year, Class: ClassDatePart, Domain: DomainAttribute, Kinds: dateKinds},
	Month:             {Name: Month, Class: ClassDatePart, Domain: DomainAttribute, Kinds: dateKinds},
	Day:               {Name: Day, Class: ClassDatePart, Domain: DomainAttribute, Kinds: dateKinds},
	Hour:              {Name: Hour, Class: ClassDatePart, Domain: DomainAttribute, Kinds: []schema.Kind{schema.KindDatetime}},
	Minute:            {Name: Minute, Class: ClassDatePart, Domain: DomainAttribute, Kinds: []schema.Kind{schema.KindDatetime}},
}

// Get returns the registry entry for name.
func Get(name string) (Spec, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names returns all registered lookup names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s Spec) allows(k schema.Kind) bool {
	if len(s.Kinds) == 0 {
		return true
	}
	for _, allowed := range s.Kinds {
		if allowed == k {
			return true
		}
	}
	return false
}

// Lookup is a request-scoped set of lookup names applied to one value.
type Lookup struct {
	// Key is the qualified keyword as given ("price__gte").
	Key   string
	Field string
	Names []string
	Value any
}

// Has reports whether the lookup carries name.
func (l Lookup) Has(name string) bool {
	for _, n := range l.Names {
		if n == name {
			return true
		}
	}
	return false
}

// First returns the first name of class c, or "".
func (l Lookup) First(c Class) string {
	for _, n := range l.Names {
		if spec, ok := registry[n]; ok && spec.Class == c {
			return n
		}
	}
	return ""
}

// Parse splits a qualified key and checks that every name is registered.
// A key without lookup names gets the default equality lookup.
func Parse(key string, value any) (Lookup, error) {
	parts := strings.Split(key, Separator)
	field := parts[0]
	if field == "" {
		return Lookup{}, errs.Field(key, "lookup %q has no field name", key)
	}
	names := parts[1:]
	if len(names) == 0 {
		names = []string{Eq}
	}
	for _, n := range names {
		if _, ok := registry[n]; !ok {
			return Lookup{}, errs.Field(field, "unknown lookup %q in %q", n, key)
		}
	}
	return Lookup{Key: key, Field: field, Names: names, Value: value}, nil
}

// Validate checks a lookup against the field it targets.
func Validate(f schema.Field, l Lookup) error {
	counts := map[Class]int{}
	for _, n := range l.Names {
		spec, ok := registry[n]
		if !ok {
			return errs.Field(f.Name, "unknown lookup %q", n)
		}
		if !spec.allows(f.Kind) {
			return errs.Field(f.Name, "lookup %q cannot be used with %s fields", n, f.Kind)
		}
		switch spec.Domain {
		case DomainFullText:
			if !f.FullText {
				return errs.Field(f.Name, "lookup %q is only valid on full-text fields", n)
			}
		case DomainAttribute:
			if f.FullText {
				return errs.Field(f.Name, "lookup %q is not valid on full-text fields", n)
			}
		}
		counts[spec.Class]++
	}
	if counts[ClassComparison]+counts[ClassEquality] > 1 {
		return errs.Field(f.Name, "lookup %q combines more than one comparison", l.Key)
	}
	if counts[ClassDatePart] > 1 {
		return errs.Field(f.Name, "lookup %q extracts more than one date part", l.Key)
	}
	return nil
}
