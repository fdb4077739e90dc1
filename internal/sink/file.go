// Package sink persists generated records to files, a relational database,
// an object store and a document store, reporting each outcome separately.
package sink

import (
	"bufio"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/datasynth/api/internal/model"
)

// FileWriter writes a full record set to one local file.
type FileWriter interface {
	Format() model.OutputFormat
	Write(path string, schema *model.TableSchema, records []model.Record) error
}

// ArtifactName is <sanitized table name>_<YYYYMMDD_HHMMSS>.<ext>.
func ArtifactName(schema *model.TableSchema, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", schema.SanitizedName(), at.Format("20060102_150405"), ext)
}

// CSVWriter writes a header row plus one row per record.
type CSVWriter struct{}

func (CSVWriter) Format() model.OutputFormat { return model.OutputFormatCSV }

func (CSVWriter) Write(path string, schema *model.TableSchema, records []model.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := columnNames(schema)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, col := range header {
			row[i] = FormatCell(rec.Get(col))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// JSONWriter writes the records as a pretty-printed JSON array.
type JSONWriter struct{}

func (JSONWriter) Format() model.OutputFormat { return model.OutputFormatJSON }

func (JSONWriter) Write(path string, _ *model.TableSchema, records []model.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []model.Record{}
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// FormatCell renders a generated value for a flat, text-based format.
// Nested records become JSON and bytes become standard base64.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case model.Record, []model.Record:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// PreviewCSV renders a header line and a single value line for rec.
func PreviewCSV(schema *model.TableSchema, rec model.Record) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	header := columnNames(schema)
	row := make([]string, len(header))
	for i, col := range header {
		row[i] = FormatCell(rec.Get(col))
	}
	_ = w.Write(header)
	_ = w.Write(row)
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func columnNames(schema *model.TableSchema) []string {
	cols := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = f.Name
	}
	return cols
}
