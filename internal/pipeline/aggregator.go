package pipeline

import (
	"encoding/json"
	"time"

	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/sink"
)

// Summary is everything the aggregator needs once records are persisted.
type Summary struct {
	Schema    *model.TableSchema
	Records   int
	Sample    model.Record
	Outcome   sink.Outcome
	ChunkSize int
	Chunks    int
	Workers   int
	Seed      uint64
	Elapsed   time.Duration
}

// Aggregate builds the final result. Sink failures are reported in
// StorageResults and never change the overall status.
func Aggregate(s Summary) *model.GenerationResult {
	schemaJSON, err := json.MarshalIndent(s.Schema, "", "  ")
	if err != nil {
		schemaJSON = []byte("{}")
	}

	files := s.Outcome.Files
	if files == nil {
		files = map[string]string{}
	}
	results := s.Outcome.Results
	if results == nil {
		results = []model.StorageResult{}
	}

	return &model.GenerationResult{
		Status:           "completed",
		RecordsGenerated: s.Records,
		Files:            files,
		StorageResults:   results,
		Preview: model.Preview{
			SchemaJSON:   string(schemaJSON),
			SampleCSV:    sink.PreviewCSV(s.Schema, s.Sample),
			SampleRecord: s.Sample,
		},
		ProcessingDetails: model.ProcessingDetails{
			ChunkSize:   s.ChunkSize,
			TotalChunks: s.Chunks,
			Workers:     s.Workers,
			Seed:        s.Seed,
			DurationMs:  s.Elapsed.Milliseconds(),
		},
	}
}
