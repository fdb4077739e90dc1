package sink

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasynth/api/internal/model"
)

func sampleSchema() *model.TableSchema {
	return &model.TableSchema{
		TableName: "Order Lines",
		Fields: []model.FieldSpec{
			{Name: "order_id", Type: model.FieldTypeString},
			{Name: "quantity", Type: model.FieldTypeInteger},
			{Name: "price", Type: model.FieldTypeDecimal},
			{Name: "is_gift", Type: model.FieldTypeBoolean},
			{Name: "payload", Type: model.FieldTypeBytes},
			{Name: "shipping", Type: model.FieldTypeRecord, Fields: []model.FieldSpec{
				{Name: "city", Type: model.FieldTypeString},
			}},
		},
	}
}

func sampleRecords(n int) []model.Record {
	out := make([]model.Record, 0, n)
	for i := 0; i < n; i++ {
		shipping := model.NewRecord(1)
		shipping.Set("city", "Lisbon")

		rec := model.NewRecord(6)
		rec.Set("order_id", "ORD-0001")
		rec.Set("quantity", int64(i))
		rec.Set("price", 9.99)
		rec.Set("is_gift", i%2 == 0)
		rec.Set("payload", []byte("hi"))
		rec.Set("shipping", shipping)
		out = append(out, rec)
	}
	return out
}

func TestArtifactName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "order_lines_20240309_140507.csv", ArtifactName(sampleSchema(), at, "csv"))
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, CSVWriter{}.Write(path, sampleSchema(), sampleRecords(3)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"order_id", "quantity", "price", "is_gift", "payload", "shipping"}, rows[0])
	assert.Equal(t, []string{"ORD-0001", "0", "9.99", "true", "aGk=", `{"city":"Lisbon"}`}, rows[1])
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, JSONWriter{}.Write(path, sampleSchema(), sampleRecords(2)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "ORD-0001", decoded[0]["order_id"])
	assert.Equal(t, map[string]any{"city": "Lisbon"}, decoded[1]["shipping"])
	assert.Contains(t, string(data), "\n  {\n    \"order_id\"")
}

func TestParquetWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	require.NoError(t, ParquetWriter{}.Write(path, sampleSchema(), sampleRecords(2500)))

	rdr, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer rdr.Close()

	assert.Equal(t, int64(2500), rdr.NumRows())
	assert.Equal(t, 6, rdr.MetaData().Schema.NumColumns())
}

func TestPreviewCSV(t *testing.T) {
	got := PreviewCSV(sampleSchema(), sampleRecords(1)[0])
	assert.Equal(t, "order_id,quantity,price,is_gift,payload,shipping\nORD-0001,0,9.99,true,aGk=,\"{\"\"city\"\":\"\"Lisbon\"\"}\"", got)
}
