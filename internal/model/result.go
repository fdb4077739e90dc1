package model

// StorageResult is the terminal outcome of writing to one sink
type StorageResult struct {
	Sink   SinkKind       `json:"sink"`
	Status SinkStatus     `json:"status"`
	Error  *string        `json:"error,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Succeeded reports whether the sink write went through.
func (r StorageResult) Succeeded() bool {
	return r.Status == SinkStatusSuccess
}

// Preview echoes the schema and renders one sample record as CSV
type Preview struct {
	SchemaJSON   string `json:"schema_json"`
	SampleCSV    string `json:"sample_csv"`
	SampleRecord Record `json:"sample_record"`
}

// ProcessingDetails describes how the job was executed
type ProcessingDetails struct {
	ChunkSize   int    `json:"chunk_size"`
	TotalChunks int    `json:"total_chunks"`
	Workers     int    `json:"workers"`
	Seed        uint64 `json:"seed"`
	DurationMs  int64  `json:"duration_ms"`
}

// GenerationResult is produced once when a job succeeds
type GenerationResult struct {
	Status            string            `json:"status"`
	RecordsGenerated  int               `json:"records_generated"`
	Files             map[string]string `json:"files"`
	StorageResults    []StorageResult   `json:"storage_results"`
	Preview           Preview           `json:"preview"`
	ProcessingDetails ProcessingDetails `json:"processing_details"`
}
