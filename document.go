package ftsq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/ftsq/internal/schema"
)

// Document is one result row: the selected columns in selection order.
type Document struct {
	keys   []string
	values map[string]any
}

func newDocument(keys []string, vals []any, s *schema.Schema) Document {
	d := Document{keys: keys, values: make(map[string]any, len(keys))}
	for i, k := range keys {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			if f, known := s.Field(k); known && f.Kind != schema.KindBlob {
				v = string(b)
			}
		}
		d.values[k] = v
	}
	return d
}

// Keys returns the column names in order.
func (d Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of columns.
func (d Document) Len() int { return len(d.keys) }

// Has reports whether the document carries column name.
func (d Document) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

// Get returns the raw value of name.
func (d Document) Get(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

// ID returns the document id, or 0 if it was not selected.
func (d Document) ID() int64 { return d.Int(schema.IDField) }

// String returns name as text.
func (d Document) String(name string) string {
	switch v := d.values[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(schema.DatetimeLayout)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns name as an integer; zero if it is NULL or not numeric.
func (d Document) Int(name string) int64 {
	switch v := d.values[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	}
	return 0
}

// Float returns name as a float; zero if it is NULL or not numeric.
func (d Document) Float(name string) float64 {
	switch v := d.values[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	}
	return 0
}

// Bytes returns name as bytes.
func (d Document) Bytes(name string) []byte {
	switch v := d.values[name].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}

var timeLayouts = []string{
	schema.DatetimeLayout,
	schema.DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// Time returns a date or datetime column. Depending on the statement the
// driver yields either a time.Time or the stored text; both are accepted.
func (d Document) Time(name string) time.Time {
	switch v := d.values[name].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// Map returns the columns as an unordered map.
func (d Document) Map() map[string]any {
	out := make(map[string]any, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the document as an object with keys in selection
// order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
