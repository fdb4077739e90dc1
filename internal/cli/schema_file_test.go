package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasynth/api/internal/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSchemaYAML(t *testing.T) {
	path := writeFile(t, "orders.yaml", `
table_name: orders
fields:
  - name: order_id
    type: STRING
    constraints:
      pattern: "ORD-\\d{4}"
  - name: amount
    type: decimal
    constraints:
      min: 1
      max: 500
  - name: address
    type: RECORD
    fields:
      - name: city
        type: STRING
`)

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	require.NoError(t, schema.Validate())

	assert.Equal(t, "orders", schema.TableName)
	require.Len(t, schema.Fields, 3)
	assert.Equal(t, `ORD-\d{4}`, schema.Fields[0].Constraints.String("pattern"))
	assert.Equal(t, 500, schema.Fields[1].Constraints.Int("max", 0))
	require.Len(t, schema.Fields[2].Fields, 1)

	schema.Normalize()
	assert.Equal(t, model.FieldTypeDecimal, schema.Fields[1].Type)
}

func TestLoadSchemaJSONDefaultsTableName(t *testing.T) {
	path := writeFile(t, "customers.json", `{"fields":[{"name":"id","type":"INTEGER"}]}`)

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "customers", schema.TableName)
}

func TestLoadSchemaErrors(t *testing.T) {
	_, err := LoadSchema(writeFile(t, "orders.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported schema file")

	_, err = LoadSchema(writeFile(t, "broken.json", "{"))
	assert.ErrorContains(t, err, "parse schema")

	_, err = LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read schema")
}

func TestParseStorage(t *testing.T) {
	opts, err := parseStorage([]string{"File", " relational "})
	require.NoError(t, err)
	assert.Equal(t, model.StorageOptions{model.StorageFile, model.StorageRelational}, opts)
	assert.True(t, needsBackends(opts))

	opts, err = parseStorage(nil)
	require.NoError(t, err)
	assert.False(t, needsBackends(opts))

	_, err = parseStorage([]string{"tape"})
	assert.Error(t, err)
}

func TestRunValidateReportsUnknownTypes(t *testing.T) {
	path := writeFile(t, "sites.yaml", `
table_name: sites
fields:
  - name: area
    type: GEOGRAPHY
  - name: meta
    type: RECORD
    fields:
      - name: shape
        type: json
`)

	err := runValidate(validateCmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "area (GEOGRAPHY)")
	assert.Contains(t, err.Error(), "meta.shape (json)")
}

func TestRunValidateAcceptsKnownTypes(t *testing.T) {
	path := writeFile(t, "orders.yaml", `
table_name: orders
fields:
  - name: order_id
    type: string
    constraints:
      pattern: ORD-####
  - name: amount
    type: decimal
`)

	assert.NoError(t, runValidate(validateCmd, []string{path}))
}
