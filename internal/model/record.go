package model

import (
	"bytes"
	"encoding/json"
)

// Record is one synthesized row. Values are keyed by field name; Columns keeps
// the schema order so every encoder writes fields in declaration order.
type Record struct {
	Columns []string
	Values  map[string]any
}

// NewRecord allocates a record sized for n fields.
func NewRecord(n int) Record {
	return Record{
		Columns: make([]string, 0, n),
		Values:  make(map[string]any, n),
	}
}

// Set appends name to the column order on first use and stores v.
func (r *Record) Set(name string, v any) {
	if _, ok := r.Values[name]; !ok {
		r.Columns = append(r.Columns, name)
	}
	r.Values[name] = v
}

// Get returns the value stored under name.
func (r Record) Get(name string) any {
	return r.Values[name]
}

// MarshalJSON encodes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.Values[col])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
