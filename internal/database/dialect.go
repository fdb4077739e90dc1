package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/datasynth/api/internal/model"
)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	name       string
	sqlDriver  string
	maxParams  int
	quote      func(string) string
	bind       func(n int) string
	types      map[model.FieldType]string
	listTables string
	columns    string
	// copyFrom is set for drivers with a native bulk path
	copyFrom bool
}

var postgresTypes = map[model.FieldType]string{
	model.FieldTypeString:    "TEXT",
	model.FieldTypeInteger:   "BIGINT",
	model.FieldTypeDecimal:   "NUMERIC",
	model.FieldTypeFloat:     "DOUBLE PRECISION",
	model.FieldTypeDate:      "DATE",
	model.FieldTypeTime:      "TEXT",
	model.FieldTypeTimestamp: "TIMESTAMP",
	model.FieldTypeBoolean:   "BOOLEAN",
	model.FieldTypeBytes:     "BYTEA",
	model.FieldTypeRecord:    "TEXT",
}

const (
	postgresListTables = `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() AND table_name LIKE $1 ORDER BY table_name`
	postgresColumns = `SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`
)

func dollarBind(n int) string { return fmt.Sprintf("$%d", n) }

func questionBind(int) string { return "?" }

var dialects = map[string]dialect{
	"pgx": {
		name:      "pgx",
		sqlDriver: "pgx",
		maxParams: 65535,
		quote: func(s string) string {
			return pgx.Identifier{s}.Sanitize()
		},
		bind:       dollarBind,
		types:      postgresTypes,
		listTables: postgresListTables,
		columns:    postgresColumns,
		copyFrom:   true,
	},
	"postgres": {
		name:       "postgres",
		sqlDriver:  "postgres",
		maxParams:  65535,
		quote:      pq.QuoteIdentifier,
		bind:       dollarBind,
		types:      postgresTypes,
		listTables: postgresListTables,
		columns:    postgresColumns,
	},
	"mysql": {
		name:      "mysql",
		sqlDriver: "mysql",
		maxParams: 65535,
		quote: func(s string) string {
			return "`" + strings.ReplaceAll(s, "`", "``") + "`"
		},
		bind: questionBind,
		types: map[model.FieldType]string{
			model.FieldTypeString:    "TEXT",
			model.FieldTypeInteger:   "BIGINT",
			model.FieldTypeDecimal:   "DECIMAL(20,6)",
			model.FieldTypeFloat:     "DOUBLE",
			model.FieldTypeDate:      "DATE",
			model.FieldTypeTime:      "TEXT",
			model.FieldTypeTimestamp: "DATETIME",
			model.FieldTypeBoolean:   "BOOLEAN",
			model.FieldTypeBytes:     "LONGBLOB",
			model.FieldTypeRecord:    "TEXT",
		},
		listTables: `SELECT table_name FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_name LIKE ? ORDER BY table_name`,
		columns: `SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`,
	},
	"sqlite": {
		name:      "sqlite",
		sqlDriver: "sqlite",
		maxParams: 32766,
		quote: func(s string) string {
			return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
		},
		bind: questionBind,
		types: map[model.FieldType]string{
			model.FieldTypeString:    "TEXT",
			model.FieldTypeInteger:   "INTEGER",
			model.FieldTypeDecimal:   "REAL",
			model.FieldTypeFloat:     "REAL",
			model.FieldTypeDate:      "DATE",
			model.FieldTypeTime:      "TEXT",
			model.FieldTypeTimestamp: "TIMESTAMP",
			model.FieldTypeBoolean:   "BOOLEAN",
			model.FieldTypeBytes:     "BLOB",
			model.FieldTypeRecord:    "TEXT",
		},
		listTables: `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ? ORDER BY name`,
		columns:    `SELECT name, type, NULL, CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END, dflt_value FROM pragma_table_info(?)`,
	},
}

// columnType returns the SQL column type for f. Repeated values are stored as JSON text.
func (d dialect) columnType(f model.FieldSpec) string {
	if f.IsRepeated() {
		return d.types[model.FieldTypeRecord]
	}
	if f.Type == model.FieldTypeInteger && f.Constraints.Has("pattern") {
		return d.types[model.FieldTypeString]
	}
	if t, ok := d.types[f.Type]; ok {
		return t
	}
	return d.types[model.FieldTypeString]
}

func (d dialect) createTable(table string, schema *model.TableSchema) string {
	cols := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = d.quote(f.Name) + " " + d.columnType(f)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.quote(table), strings.Join(cols, ", "))
}

// insert builds a multi-row INSERT for rows rows of width columns.
func (d dialect) insert(table string, columns []string, rows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quote(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.quote(table), strings.Join(quoted, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.bind(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
