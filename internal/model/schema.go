package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/datasynth/api/internal/errs"
)

// FieldType is the declared semantic type of a schema field
type FieldType string

const (
	FieldTypeString    FieldType = "STRING"
	FieldTypeInteger   FieldType = "INTEGER"
	FieldTypeDecimal   FieldType = "DECIMAL"
	FieldTypeFloat     FieldType = "FLOAT"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeTime      FieldType = "TIME"
	FieldTypeTimestamp FieldType = "TIMESTAMP"
	FieldTypeBoolean   FieldType = "BOOLEAN"
	FieldTypeBytes     FieldType = "BYTES"
	FieldTypeRecord    FieldType = "RECORD"
)

var ValidFieldTypes = []FieldType{
	FieldTypeString, FieldTypeInteger, FieldTypeDecimal, FieldTypeFloat,
	FieldTypeDate, FieldTypeTime, FieldTypeTimestamp, FieldTypeBoolean,
	FieldTypeBytes, FieldTypeRecord,
}

// Known reports whether t is one of the supported field types.
func (t FieldType) Known() bool {
	for _, v := range ValidFieldTypes {
		if v == t {
			return true
		}
	}
	return false
}

// FieldMode
type FieldMode string

const (
	FieldModeNullable FieldMode = "NULLABLE"
	FieldModeRepeated FieldMode = "REPEATED"
	FieldModeRequired FieldMode = "REQUIRED"
)

// Constraints holds per-field generation hints such as pattern, min, max or scale.
type Constraints map[string]any

// FieldSpec describes one column of a table schema
type FieldSpec struct {
	Name        string      `json:"name" yaml:"name"`
	Type        FieldType   `json:"type" yaml:"type"`
	Mode        FieldMode   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Constraints Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Fields      []FieldSpec `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// TableSchema is the declarative description of the records to synthesize
type TableSchema struct {
	TableName string      `json:"table_name" yaml:"table_name" validate:"required"`
	Fields    []FieldSpec `json:"fields" yaml:"fields" validate:"required,min=1"`
}

// IsRepeated reports whether the field produces a list of values.
func (f FieldSpec) IsRepeated() bool {
	return strings.EqualFold(string(f.Mode), string(FieldModeRepeated))
}

// Validate checks structural well-formedness. Unknown field types are left to
// the generator, which rejects them when the job runs.
func (s *TableSchema) Validate() error {
	if strings.TrimSpace(s.TableName) == "" {
		return &errs.ValidationError{Field: "table_name", Message: "table name is required"}
	}
	if strings.Trim(SanitizeIdentifier(s.TableName), "_") == "" {
		return &errs.ValidationError{Field: "table_name", Message: fmt.Sprintf("table name %q has no usable characters", s.TableName)}
	}
	if len(s.Fields) == 0 {
		return &errs.ValidationError{Field: "fields", Message: "schema must declare at least one field"}
	}
	return validateFields("fields", s.Fields)
}

func validateFields(path string, fields []FieldSpec) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		at := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(f.Name) == "" {
			return &errs.ValidationError{Field: at + ".name", Message: "field name is required"}
		}
		key := strings.ToLower(f.Name)
		if _, dup := seen[key]; dup {
			return &errs.ValidationError{Field: at + ".name", Message: fmt.Sprintf("duplicate field name %q", f.Name)}
		}
		seen[key] = struct{}{}

		if f.Type == "" {
			return &errs.ValidationError{Field: at + ".type", Message: "field type is required"}
		}
		switch FieldMode(strings.ToUpper(string(f.Mode))) {
		case "", FieldModeNullable, FieldModeRepeated, FieldModeRequired:
		default:
			return &errs.ValidationError{Field: at + ".mode", Message: fmt.Sprintf("unknown mode %q", f.Mode)}
		}

		if strings.EqualFold(string(f.Type), string(FieldTypeRecord)) {
			if len(f.Fields) == 0 {
				return &errs.ValidationError{Field: at + ".fields", Message: fmt.Sprintf("RECORD field %q needs nested fields", f.Name)}
			}
			if err := validateFields(at+".fields", f.Fields); err != nil {
				return err
			}
		}
	}
	return nil
}

// UnknownTypes lists every field, nested ones included, whose type has no
// generator, as "path.name (TYPE)".
func (s *TableSchema) UnknownTypes() []string {
	return unknownTypes("", s.Fields, nil)
}

func unknownTypes(prefix string, fields []FieldSpec, out []string) []string {
	for _, f := range fields {
		t := FieldType(strings.ToUpper(strings.TrimSpace(string(f.Type))))
		if !t.Known() {
			out = append(out, fmt.Sprintf("%s%s (%s)", prefix, f.Name, f.Type))
			continue
		}
		if t == FieldTypeRecord {
			out = unknownTypes(prefix+f.Name+".", f.Fields, out)
		}
	}
	return out
}

// SanitizedName returns the table name reduced to [a-z0-9_].
func (s *TableSchema) SanitizedName() string {
	return SanitizeIdentifier(s.TableName)
}

// SanitizeIdentifier lower-cases name and replaces anything outside [a-z0-9_] with an underscore.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Normalize upper-cases types and modes in place so lookups are case-insensitive.
func (s *TableSchema) Normalize() {
	normalizeFields(s.Fields)
}

func normalizeFields(fields []FieldSpec) {
	for i := range fields {
		fields[i].Type = FieldType(strings.ToUpper(strings.TrimSpace(string(fields[i].Type))))
		fields[i].Mode = FieldMode(strings.ToUpper(strings.TrimSpace(string(fields[i].Mode))))
		if fields[i].Mode == "" {
			fields[i].Mode = FieldModeNullable
		}
		normalizeFields(fields[i].Fields)
	}
}

// Has reports whether a constraint is present and non-nil.
func (c Constraints) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// Int returns the constraint as an int, or def if absent or not numeric.
func (c Constraints) Int(key string, def int) int {
	f, ok := c.number(key)
	if !ok {
		return def
	}
	return int(f)
}

// Float returns the constraint as a float64, or def if absent or not numeric.
func (c Constraints) Float(key string, def float64) float64 {
	f, ok := c.number(key)
	if !ok {
		return def
	}
	return f
}

// String returns the constraint rendered as a string, "" if absent.
func (c Constraints) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool reports whether the constraint is truthy.
func (c Constraints) Bool(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	}
	f, ok := c.number(key)
	return ok && f != 0
}

func (c Constraints) number(key string) (float64, bool) {
	v, ok := c[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
