package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the data kind of a field.
type Kind int

const (
	// KindInteger maps to INTEGER.
	KindInteger Kind = iota + 1
	// KindText maps to TEXT.
	KindText
	// KindReal maps to REAL.
	KindReal
	// KindBlob maps to BLOB.
	KindBlob
	// KindDate maps to DATE, stored as YYYY-MM-DD.
	KindDate
	// KindDatetime maps to DATETIME, stored as YYYY-MM-DD HH:MM:SS.
	KindDatetime
)

const (
	// DateLayout is the storage layout of KindDate values.
	DateLayout = "2006-01-02"
	// DatetimeLayout is the storage layout of KindDatetime values.
	DatetimeLayout = "2006-01-02 15:04:05"
)

var kindNames = map[Kind]string{
	KindInteger:  "INTEGER",
	KindText:     "TEXT",
	KindReal:     "REAL",
	KindBlob:     "BLOB",
	KindDate:     "DATE",
	KindDatetime: "DATETIME",
}

// SQLType returns the column type used in the document relation.
func (k Kind) SQLType() string {
	return kindNames[k]
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return strings.ToLower(name)
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name ("int", "text", "date", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return KindInteger, nil
	case "text", "string":
		return KindText, nil
	case "real", "float":
		return KindReal, nil
	case "blob", "bytes", "binary":
		return KindBlob, nil
	case "date":
		return KindDate, nil
	case "datetime", "timestamp":
		return KindDatetime, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Field is one column of the document relation.
//
// Fields are values; the modifier methods return modified copies so
// declarations read as one expression:
//
//	schema.Text("title").Searchable()
//	schema.Text("filename").Unique()
type Field struct {
	Name string
	Kind Kind

	// FullText marks a Text field as part of the full-text index.
	FullText bool

	// Identity marks the field as the document's unique key; insert-or-update
	// resolves conflicts on it.
	Identity bool

	// Index requests a B-tree index for an attribute field.
	Index bool

	// Hidden fields are not columns of the document relation.
	Hidden bool

	// Default produces a value when a write omits the field.
	Default func() any

	implicit bool
}

// Int declares an INTEGER field.
func Int(name string) Field { return Field{Name: name, Kind: KindInteger} }

// Text declares a TEXT field.
func Text(name string) Field { return Field{Name: name, Kind: KindText} }

// Real declares a REAL field.
func Real(name string) Field { return Field{Name: name, Kind: KindReal} }

// Blob declares a BLOB field.
func Blob(name string) Field { return Field{Name: name, Kind: KindBlob} }

// Date declares a DATE field.
func Date(name string) Field { return Field{Name: name, Kind: KindDate} }

// Datetime declares a DATETIME field.
func Datetime(name string) Field { return Field{Name: name, Kind: KindDatetime} }

// Searchable adds the field to the full-text index.
func (f Field) Searchable() Field {
	f.FullText = true
	return f
}

// Unique makes the field the identity field of the schema.
func (f Field) Unique() Field {
	f.Identity = true
	return f
}

// Indexed requests a B-tree index on an attribute field.
func (f Field) Indexed() Field {
	f.Index = true
	return f
}

// WithDefault sets the value producer used when a write omits the field.
func (f Field) WithDefault(fn func() any) Field {
	f.Default = fn
	return f
}

// UUIDDefault produces random UUID strings; useful for identity fields.
func UUIDDefault() any {
	return uuid.NewString()
}

// Implicit reports whether the field was added by the schema itself
// ("id" and "rank").
func (f Field) Implicit() bool {
	return f.implicit
}

// Normalize converts a Go value into the form bound for this field.
// time.Time values are formatted with the storage layout of date kinds so
// strftime-based lookups work on them.
func (f Field) Normalize(v any) any {
	t, ok := v.(time.Time)
	if !ok {
		if p, isPtr := v.(*time.Time); isPtr && p != nil {
			t, ok = *p, true
		}
	}
	if !ok {
		return v
	}
	switch f.Kind {
	case KindDate:
		return t.Format(DateLayout)
	case KindDatetime, KindText:
		return t.Format(DatetimeLayout)
	}
	return v
}

func (f Field) constraints() string {
	switch {
	case f.Name == IDField:
		return " PRIMARY KEY AUTOINCREMENT"
	case f.Identity:
		return " UNIQUE"
	}
	return ""
}

// ColumnDef renders the column definition used in CREATE TABLE.
func (f Field) ColumnDef() string {
	return f.Name + " " + f.Kind.SQLType() + f.constraints()
}
