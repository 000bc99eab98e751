package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/ftsq/internal/schema"
	"github.com/roach88/ftsq/internal/tokenize"
)

// DomainDefinition separates definition fingerprints from any other hash
// computed over the same bytes. The version suffix allows migrating the
// encoding.
const DomainDefinition = "ftsq/definition/v1"

// Definition is the registry's record of a schema.
type Definition struct {
	Name        string            `json:"name"`
	Fields      []FieldDefinition `json:"fields"`
	Tokenizer   tokenize.Config   `json:"tokenizer"`
	PrefixIndex []int             `json:"prefix_index,omitempty"`
}

// FieldDefinition is one declared field.
type FieldDefinition struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Searchable bool   `json:"searchable,omitempty"`
	Unique     bool   `json:"unique,omitempty"`
	Indexed    bool   `json:"indexed,omitempty"`
}

// DefinitionOf describes s. Implicit fields are not recorded.
func DefinitionOf(s *schema.Schema) Definition {
	d := Definition{
		Name:        s.Name(),
		Tokenizer:   s.Tokenizer().Config(),
		PrefixIndex: s.PrefixIndex(),
	}
	for _, f := range s.UserFields() {
		d.Fields = append(d.Fields, FieldDefinition{
			Name:       f.Name,
			Kind:       f.Kind.String(),
			Searchable: f.FullText,
			Unique:     f.Identity,
			Indexed:    f.Index,
		})
	}
	return d
}

// MarshalDefinition encodes the definition of s as JSON TEXT.
// Struct field order makes the encoding deterministic.
func MarshalDefinition(s *schema.Schema) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(DefinitionOf(s)); err != nil {
		return "", fmt.Errorf("marshal definition: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// UnmarshalDefinition parses a registry definition.
func UnmarshalDefinition(data string) (Definition, error) {
	var d Definition
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return Definition{}, fmt.Errorf("unmarshal definition: %w", err)
	}
	return d, nil
}

// Fingerprint computes SHA-256 with domain separation over a definition.
// Format: SHA256(domain + 0x00 + data)
func Fingerprint(definition string) string {
	h := sha256.New()
	h.Write([]byte(DomainDefinition))
	h.Write([]byte{0x00})
	h.Write([]byte(definition))
	return hex.EncodeToString(h.Sum(nil))
}

// Schema rebuilds the schema a registry definition describes. Field
// defaults are not recorded and are therefore absent.
func (d Definition) Schema() (*schema.Schema, error) {
	fields := make([]schema.Field, 0, len(d.Fields))
	for _, fd := range d.Fields {
		kind, err := schema.ParseKind(fd.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		f := schema.Field{Name: fd.Name, Kind: kind}
		if fd.Searchable {
			f = f.Searchable()
		}
		if fd.Unique {
			f = f.Unique()
		}
		if fd.Indexed {
			f = f.Indexed()
		}
		fields = append(fields, f)
	}
	opts := []schema.Option{schema.WithTokenizer(d.Tokenizer)}
	if len(d.PrefixIndex) > 0 {
		opts = append(opts, schema.WithPrefixIndex(d.PrefixIndex...))
	}
	return schema.New(d.Name, fields, opts...)
}
