package ftsq

import (
	"context"

	"github.com/roach88/ftsq/internal/arbiter"
	"github.com/roach88/ftsq/internal/reader"
	"github.com/roach88/ftsq/internal/schema"
	"github.com/roach88/ftsq/internal/spell"
	"github.com/roach88/ftsq/internal/store"
	"github.com/roach88/ftsq/internal/tokenize"
)

// Schema declares the fields of an index:
//
//	s, err := ftsq.NewSchema("movie", []ftsq.Field{
//		ftsq.Text("title").Searchable().Unique(),
//		ftsq.Int("year").Indexed(),
//	})
type Schema = schema.Schema

// Field is one declared field.
type Field = schema.Field

// SchemaOption configures NewSchema.
type SchemaOption = schema.Option

// TokenizerConfig mirrors the engine's unicode61 tokenizer options.
type TokenizerConfig = tokenize.Config

// NewSchema validates fields and builds a schema named name.
func NewSchema(name string, fields []Field, opts ...SchemaOption) (*Schema, error) {
	return schema.New(name, fields, opts...)
}

// DefaultSchema is {text: searchable} named name.
func DefaultSchema(name string) *Schema { return schema.Default(name) }

// WithTokenizer configures the tokenizer of a schema.
func WithTokenizer(cfg TokenizerConfig) SchemaOption { return schema.WithTokenizer(cfg) }

// WithPrefixIndex requests prefix indexes of the given lengths.
func WithPrefixIndex(lengths ...int) SchemaOption { return schema.WithPrefixIndex(lengths...) }

// DefaultTokenizer returns the engine's default tokenizer options.
func DefaultTokenizer() TokenizerConfig { return tokenize.DefaultConfig() }

// Field constructors.
var (
	Int      = schema.Int
	Text     = schema.Text
	Real     = schema.Real
	Blob     = schema.Blob
	Date     = schema.Date
	Datetime = schema.Datetime
)

// UUIDDefault produces random UUID strings for Field.WithDefault.
func UUIDDefault() any { return schema.UUIDDefault() }

// Arbiter serializes writers per index name.
type Arbiter = arbiter.Arbiter

// ArbiterOption configures NewArbiter.
type ArbiterOption = arbiter.Option

// NewArbiter creates an arbiter for WithArbiter.
func NewArbiter(opts ...ArbiterOption) *Arbiter { return arbiter.New(opts...) }

// Reader feeds documents to Index.Build.
type Reader = reader.Reader

// FileSystem reads the files below a directory, see FileSystemSchema.
type FileSystem = reader.FileSystem

// FileSystemSchema is the schema of documents read by FileSystem.
func FileSystemSchema(name string) (*Schema, error) { return reader.Schema(name) }

// SpellOption configures the spell checker of Index.Spell.
type SpellOption = spell.Option

// Suggestion is a spell checker result for one unknown word.
type Suggestion = spell.Suggestion

// RegisteredSchema returns the schema recorded for index name in the
// database at path. ok is false when no such index exists.
func RegisteredSchema(ctx context.Context, path, name string, opts ...Option) (s *Schema, ok bool, err error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	st, err := store.Open(ctx, store.Options{Path: path, Driver: o.driver, Logger: o.logger})
	if err != nil {
		return nil, false, err
	}
	defer st.Close()

	reg, ok, err := st.Registration(ctx, name)
	if err != nil || !ok {
		return nil, false, err
	}
	def, err := store.UnmarshalDefinition(reg.Definition)
	if err != nil {
		return nil, false, err
	}
	s, err = def.Schema()
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}
