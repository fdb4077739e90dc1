package sink

import (
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/datasynth/api/internal/model"
)

const parquetBatchRows = 1000

// ParquetWriter writes Snappy-compressed Parquet. Nested records, dates and
// times are stored as strings.
type ParquetWriter struct{}

func (ParquetWriter) Format() model.OutputFormat { return model.OutputFormatParquet }

func (ParquetWriter) Write(path string, schema *model.TableSchema, records []model.Record) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create Parquet file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
			err = cerr
		}
	}()

	arrowSchema := ArrowSchema(schema)
	writeProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithDictionaryDefault(false),
	)
	writer, err := pqarrow.NewFileWriter(arrowSchema, file, writeProps, pqarrow.NewArrowWriterProperties())
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	mem := memory.NewGoAllocator()
	for start := 0; start < len(records); start += parquetBatchRows {
		end := min(start+parquetBatchRows, len(records))
		rec, err := buildBatch(mem, arrowSchema, schema, records[start:end])
		if err != nil {
			writer.Close()
			return err
		}
		werr := writer.Write(rec)
		rec.Release()
		if werr != nil {
			writer.Close()
			return fmt.Errorf("failed to write record batch: %w", werr)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}

// ArrowSchema maps the top-level fields of schema to Arrow columns.
func ArrowSchema(schema *model.TableSchema) *arrow.Schema {
	fields := make([]arrow.Field, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(f model.FieldSpec) arrow.DataType {
	if f.IsRepeated() {
		return arrow.BinaryTypes.String
	}
	switch f.Type {
	case model.FieldTypeInteger:
		if f.Constraints.Has("pattern") {
			return arrow.BinaryTypes.String
		}
		return arrow.PrimitiveTypes.Int64
	case model.FieldTypeDecimal, model.FieldTypeFloat:
		return arrow.PrimitiveTypes.Float64
	case model.FieldTypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	case model.FieldTypeBytes:
		return arrow.BinaryTypes.Binary
	case model.FieldTypeTimestamp:
		if f.Constraints.Bool("iso_format") {
			return arrow.BinaryTypes.String
		}
		return arrow.PrimitiveTypes.Int64
	}
	return arrow.BinaryTypes.String
}

func buildBatch(mem memory.Allocator, arrowSchema *arrow.Schema, schema *model.TableSchema, records []model.Record) (arrow.Record, error) {
	b := array.NewRecordBuilder(mem, arrowSchema)
	defer b.Release()

	for i, f := range schema.Fields {
		fb := b.Field(i)
		for _, rec := range records {
			if err := appendValue(fb, rec.Get(f.Name)); err != nil {
				return nil, fmt.Errorf("column %q: %w", f.Name, err)
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.Int64Builder:
		switch n := v.(type) {
		case int64:
			fb.Append(n)
		case int:
			fb.Append(int64(n))
		case float64:
			fb.Append(int64(n))
		default:
			return fmt.Errorf("cannot store %T as int64", v)
		}
	case *array.Float64Builder:
		switch n := v.(type) {
		case float64:
			fb.Append(n)
		case int64:
			fb.Append(float64(n))
		default:
			return fmt.Errorf("cannot store %T as float64", v)
		}
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot store %T as boolean", v)
		}
		fb.Append(bv)
	case *array.BinaryBuilder:
		bv, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("cannot store %T as binary", v)
		}
		fb.Append(bv)
	case *array.StringBuilder:
		fb.Append(FormatCell(v))
	default:
		return fmt.Errorf("unsupported column builder %T", b)
	}
	return nil
}
