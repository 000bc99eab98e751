package schema

import (
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/tokenize"
)

const (
	// IDField is the implicit integer primary key.
	IDField = "id"
	// RankField is the implicit, hidden relevance column.
	RankField = "rank"

	// MaxPrefixLength bounds prefix-index lengths.
	MaxPrefixLength = 16
)

var identifierRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// reservedWords are SQL keywords plus names the generated tables use.
var reservedWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		ABORT ACTION ADD AFTER ALL ALTER ANALYZE AND AS ASC ATTACH AUTOINCREMENT
		BEFORE BEGIN BETWEEN BY CASCADE CASE CAST CHECK COLLATE COLUMN COMMIT
		CONFLICT CONSTRAINT CONTENT CREATE CROSS CURRENT_DATE CURRENT_TIME
		CURRENT_TIMESTAMP DATABASE DEFAULT DEFERRABLE DEFERRED DELETE DESC DETACH
		DISTINCT DROP EACH ELSE END ESCAPE EXCEPT EXCLUSIVE EXISTS EXPLAIN FAIL
		FOR FOREIGN FROM FULL GLOB GROUP HAVING IF IGNORE IMMEDIATE IN INDEX
		INDEXED INITIALLY INNER INSERT INSTEAD INTERSECT INTO IS ISNULL JOIN KEY
		LEFT LIKE LIMIT MATCH NATURAL NEAR NO NOT NOTNULL NULL OF OFFSET ON OR
		ORDER OUTER PLAN PRAGMA PRIMARY QUERY RAISE RANK RECURSIVE REFERENCES
		REGEXP REINDEX RELEASE RENAME REPLACE RESTRICT RIGHT ROLLBACK ROW ROWID
		SAVEPOINT SELECT SET TABLE TEMP TEMPORARY THEN TO TRANSACTION TRIGGER
		UNION UNIQUE UPDATE USING VACUUM VALUES VIEW VIRTUAL WHEN WHERE WITH
		WITHOUT ID`) {
		reservedWords[w] = true
	}
}

// IsReserved reports whether name may not be used as a field name.
func IsReserved(name string) bool {
	return reservedWords[strings.ToUpper(name)]
}

// Schema is an immutable, validated document layout.
type Schema struct {
	name        string
	fields      []Field // id, declared fields, rank
	byName      map[string]int
	identity    string
	tokenizer   *tokenize.Tokenizer
	prefixIndex []int
}

// Option configures a Schema at build time.
type Option func(*builder)

type builder struct {
	tokenizer   tokenize.Config
	prefixIndex []int
}

// WithTokenizer sets the tokenizer configuration shared by the engine DDL
// and the in-process emulator.
func WithTokenizer(cfg tokenize.Config) Option {
	return func(b *builder) {
		b.tokenizer = cfg
	}
}

// WithPrefixIndex requests engine prefix indexes of the given lengths.
func WithPrefixIndex(lengths ...int) Option {
	return func(b *builder) {
		b.prefixIndex = append(b.prefixIndex, lengths...)
	}
}

// New builds a Schema named name (the document relation's table name).
func New(name string, fields []Field, opts ...Option) (*Schema, error) {
	b := &builder{tokenizer: tokenize.DefaultConfig()}
	for _, opt := range opts {
		opt(b)
	}

	if !identifierRE.MatchString(name) || strings.Contains(name, "__") || IsReserved(name) {
		return nil, errs.Schema("%q is not a valid index name", name)
	}

	s := &Schema{
		name:   name,
		byName: make(map[string]int, len(fields)+2),
	}
	s.add(Field{Name: IDField, Kind: KindInteger, implicit: true})

	hasFullText := false
	for _, f := range fields {
		if err := validateField(f); err != nil {
			return nil, err
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, errs.Schema("field %q is declared twice", f.Name)
		}
		if f.Identity {
			if s.identity != "" {
				return nil, errs.Schema("only one identity field is allowed per schema; current identity field is %q", s.identity)
			}
			s.identity = f.Name
		}
		hasFullText = hasFullText || f.FullText
		s.add(f)
	}
	if !hasFullText {
		return nil, errs.Schema("schema %q does not have a single full-text field", name)
	}
	s.add(Field{Name: RankField, Kind: KindReal, Hidden: true, implicit: true})

	tok, err := tokenize.New(b.tokenizer)
	if err != nil {
		return nil, errs.Schema("invalid tokenizer: %v", err)
	}
	s.tokenizer = tok

	prefix, err := normalizePrefixIndex(b.prefixIndex)
	if err != nil {
		return nil, err
	}
	s.prefixIndex = prefix

	return s, nil
}

// MustNew is New for schemas known to be valid (tests, package-level vars).
func MustNew(name string, fields []Field, opts ...Option) *Schema {
	s, err := New(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Default returns the single-field schema {text: searchable}.
func Default(name string) *Schema {
	return MustNew(name, []Field{Text("text").Searchable()})
}

func (s *Schema) add(f Field) {
	s.byName[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
}

func validateField(f Field) error {
	switch {
	case f.Name == "":
		return errs.Schema("field name must not be empty")
	case strings.HasPrefix(f.Name, "_") || strings.Contains(f.Name, "__"):
		return errs.Schema("cannot use %q as field name: field names may not start with an underscore or contain double underscores", f.Name)
	case !identifierRE.MatchString(f.Name):
		return errs.Schema("cannot use %q as field name: not a valid identifier", f.Name)
	case IsReserved(f.Name):
		return errs.Schema("%q is a reserved name - please choose another name", f.Name)
	case f.Kind.SQLType() == "":
		return errs.Schema("field %q has no data kind", f.Name)
	case f.FullText && f.Kind != KindText:
		return errs.Schema("field %q: only text fields can be full-text searchable", f.Name)
	case f.FullText && f.Index:
		return errs.Schema("field %q: full-text fields are indexed by the engine already", f.Name)
	case f.Hidden:
		return errs.Schema("field %q: hidden fields are reserved for the engine", f.Name)
	}
	return nil
}

func normalizePrefixIndex(lengths []int) ([]int, error) {
	seen := make(map[int]bool, len(lengths))
	var out []int
	for _, n := range lengths {
		if n < 1 || n > MaxPrefixLength {
			return nil, errs.Schema("prefix index length %d out of range [1, %d]", n, MaxPrefixLength)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Name returns the document relation's table name.
func (s *Schema) Name() string { return s.name }

// FTSTable returns the full-text index table name.
func (s *Schema) FTSTable() string { return s.name + "_fts" }

// VocabTable returns the term statistics table name.
func (s *Schema) VocabTable() string { return s.name + "_fts_v" }

// Identity returns the identity field name, or "" if none was declared.
func (s *Schema) Identity() string { return s.identity }

// Tokenizer returns the emulator configured like the engine.
func (s *Schema) Tokenizer() *tokenize.Tokenizer { return s.tokenizer }

// PrefixIndex returns the sorted prefix-index lengths.
func (s *Schema) PrefixIndex() []int { return append([]int(nil), s.prefixIndex...) }

// Fields returns every field, implicit ones included, in declaration order.
func (s *Schema) Fields() []Field { return append([]Field(nil), s.fields...) }

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// MustField is Field that returns a FieldError for unknown names.
func (s *Schema) MustField(name string) (Field, error) {
	f, ok := s.Field(name)
	if !ok {
		return Field{}, errs.Field(name, "%q is not defined in schema %q", name, s.name)
	}
	return f, nil
}

// Position returns the declaration index of a field, used to order lookups
// deterministically.
func (s *Schema) Position(name string) int {
	if i, ok := s.byName[name]; ok {
		return i
	}
	return len(s.fields)
}

// Columns returns the fields stored in the document relation.
func (s *Schema) Columns() []Field {
	var out []Field
	for _, f := range s.fields {
		if !f.Hidden {
			out = append(out, f)
		}
	}
	return out
}

// UserFields returns the declared (non-implicit) fields.
func (s *Schema) UserFields() []Field {
	var out []Field
	for _, f := range s.fields {
		if !f.implicit {
			out = append(out, f)
		}
	}
	return out
}

// FullTextFields returns the full-text fields in index column order.
func (s *Schema) FullTextFields() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.FullText {
			out = append(out, f)
		}
	}
	return out
}

// FullTextColumn returns the position of a field within the full-text
// index, as expected by highlight() and snippet().
func (s *Schema) FullTextColumn(name string) (int, bool) {
	for i, f := range s.FullTextFields() {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}
