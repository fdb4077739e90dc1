package synth

import "github.com/datasynth/api/internal/model"

// GenerateRecord builds one record over fields, recursing into RECORD fields.
func GenerateRecord(src *Source, fields []model.FieldSpec, pools IDPools) (model.Record, error) {
	rec := model.NewRecord(len(fields))
	for _, f := range fields {
		v, err := fieldValue(src, f, pools[f.Name], pools)
		if err != nil {
			return model.Record{}, err
		}
		rec.Set(f.Name, v)
	}
	return rec, nil
}

// GenerateRecords builds n records for schema.
func GenerateRecords(src *Source, schema *model.TableSchema, n int, pools IDPools) ([]model.Record, error) {
	out := make([]model.Record, 0, n)
	for i := 0; i < n; i++ {
		rec, err := GenerateRecord(src, schema.Fields, pools)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
