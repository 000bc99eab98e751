// Package config loads index definitions and CLI settings.
//
// An index definition describes a schema in a file so it can be created
// and reopened without Go code:
//
//	name: movie
//	fields:
//	  - {name: title, kind: text, searchable: true, unique: true}
//	  - {name: year, kind: int, indexed: true}
//	prefix_index: [2, 3]
//
// YAML (and JSON) files are decoded with yaml.v3; CUE files are unified
// with the #Index definition in index.cue first. Both are then checked
// with the struct tags below before a schema is built.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/schema"
	"github.com/roach88/ftsq/internal/tokenize"
)

//go:embed index.cue
var indexCUE string

// DefaultUUID selects schema.UUIDDefault as a field default.
const DefaultUUID = "uuid"

// IndexDef is a declarative schema.
type IndexDef struct {
	Name        string           `yaml:"name" json:"name" validate:"required,identifier"`
	Fields      []FieldDef       `yaml:"fields" json:"fields" validate:"required,min=1,dive"`
	Tokenizer   *tokenize.Config `yaml:"tokenizer,omitempty" json:"tokenizer,omitempty"`
	PrefixIndex []int            `yaml:"prefix_index,omitempty" json:"prefix_index,omitempty" validate:"dive,min=1,max=16"`
}

// FieldDef declares one field of an IndexDef.
type FieldDef struct {
	Name       string `yaml:"name" json:"name" validate:"required,identifier"`
	Kind       string `yaml:"kind" json:"kind" validate:"required,kind"`
	Searchable bool   `yaml:"searchable,omitempty" json:"searchable,omitempty"`
	Unique     bool   `yaml:"unique,omitempty" json:"unique,omitempty"`
	Indexed    bool   `yaml:"indexed,omitempty" json:"indexed,omitempty"`
	Default    string `yaml:"default,omitempty" json:"default,omitempty" validate:"omitempty,oneof=uuid"`
}

var (
	validate     *validator.Validate
	identifierRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierRE.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("kind", func(fl validator.FieldLevel) bool {
		_, err := schema.ParseKind(fl.Field().String())
		return err == nil
	})
}

// LoadDefinition reads an index definition from path. The format follows
// the extension: .cue for CUE, anything else for YAML/JSON.
func LoadDefinition(path string) (*IndexDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Schema("read index definition: %v", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseCUE(path, data)
	}
	return ParseYAML(data)
}

// ParseYAML decodes and validates a YAML or JSON definition. Unknown keys
// are rejected.
func ParseYAML(data []byte) (*IndexDef, error) {
	var def IndexDef
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errs.Schema("decode index definition: %v", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseCUE unifies a CUE definition with #Index, then decodes and
// validates it. filename is used in error positions only.
func ParseCUE(filename string, data []byte) (*IndexDef, error) {
	ctx := cuecontext.New()
	index := ctx.CompileString(indexCUE, cue.Filename("index.cue")).LookupPath(cue.ParsePath("#Index"))
	if err := index.Err(); err != nil {
		return nil, errs.Schema("index definition schema: %v", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, errs.Schema("compile %s: %v", filename, err)
	}
	if idx := v.LookupPath(cue.ParsePath("index")); idx.Exists() {
		v = idx
	}

	unified := index.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, errs.Schema("%s: %v", filename, err)
	}

	var def IndexDef
	if err := unified.Decode(&def); err != nil {
		return nil, errs.Schema("decode %s: %v", filename, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the struct tags of d and its fields.
func (d *IndexDef) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Schema("invalid index definition: %v", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
	}
	return errs.Schema("invalid index definition: %s", strings.Join(msgs, "; "))
}

// Schema builds the schema the definition describes.
func (d *IndexDef) Schema() (*schema.Schema, error) {
	fields := make([]schema.Field, 0, len(d.Fields))
	for _, fd := range d.Fields {
		kind, err := schema.ParseKind(fd.Kind)
		if err != nil {
			return nil, errs.Schema("field %q: %v", fd.Name, err)
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
		if fd.Default == DefaultUUID {
			f = f.WithDefault(schema.UUIDDefault)
		}
		fields = append(fields, f)
	}

	var opts []schema.Option
	if d.Tokenizer != nil {
		cfg := *d.Tokenizer
		if len(cfg.Categories) == 0 {
			cfg.Categories = append([]string(nil), tokenize.DefaultCategories...)
		}
		opts = append(opts, schema.WithTokenizer(cfg))
	}
	if len(d.PrefixIndex) > 0 {
		opts = append(opts, schema.WithPrefixIndex(d.PrefixIndex...))
	}
	return schema.New(d.Name, fields, opts...)
}
