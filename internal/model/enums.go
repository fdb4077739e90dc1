package model

// Job status
type JobStatus string

const (
	JobStatusPending  JobStatus = "PENDING"
	JobStatusProgress JobStatus = "PROGRESS"
	JobStatusSuccess  JobStatus = "SUCCESS"
	JobStatusFailure  JobStatus = "FAILURE"
	// JobStatusNotFound is only ever reported by the status endpoint.
	JobStatusNotFound JobStatus = "NOT_FOUND"
)

// Terminal reports whether the job can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailure
}

// Output formats accepted by the generate endpoint
type OutputFormat string

const (
	OutputFormatCSV     OutputFormat = "csv"
	OutputFormatJSON    OutputFormat = "json"
	OutputFormatParquet OutputFormat = "parquet"
	OutputFormatBoth    OutputFormat = "both"
	OutputFormatAll     OutputFormat = "all"
)

// Formats expands an output format into the concrete file formats to write.
func (f OutputFormat) Formats() []OutputFormat {
	switch f {
	case OutputFormatBoth:
		return []OutputFormat{OutputFormatCSV, OutputFormatJSON}
	case OutputFormatAll:
		return []OutputFormat{OutputFormatCSV, OutputFormatJSON, OutputFormatParquet}
	case "":
		return []OutputFormat{OutputFormatCSV}
	}
	return []OutputFormat{f}
}

// Storage options
type StorageOption string

const (
	StorageFile        StorageOption = "file"
	StorageRelational  StorageOption = "relational"
	StorageObjectStore StorageOption = "object_store"
	StorageDocument    StorageOption = "document"
	// StorageBoth keeps the historical meaning: relational plus object store.
	StorageBoth StorageOption = "both"
	StorageAll  StorageOption = "all"
)

var ValidStorageOptions = []StorageOption{
	StorageFile, StorageRelational, StorageObjectStore, StorageDocument, StorageBoth, StorageAll,
}

// Sink kinds
type SinkKind string

const (
	SinkFileCSV       SinkKind = "FILE_CSV"
	SinkFileJSON      SinkKind = "FILE_JSON"
	SinkFileParquet   SinkKind = "FILE_PARQUET"
	SinkRelational    SinkKind = "RELATIONAL"
	SinkObjectStore   SinkKind = "OBJECT_STORE"
	SinkDocumentStore SinkKind = "DOCUMENT_STORE"
)

// FileSinkFor maps a concrete file format to its sink kind.
func FileSinkFor(f OutputFormat) SinkKind {
	switch f {
	case OutputFormatJSON:
		return SinkFileJSON
	case OutputFormatParquet:
		return SinkFileParquet
	}
	return SinkFileCSV
}

// Sink status
type SinkStatus string

const (
	SinkStatusNotAttempted SinkStatus = "NOT_ATTEMPTED"
	SinkStatusSuccess      SinkStatus = "SUCCESS"
	SinkStatusFailed       SinkStatus = "FAILED"
)
