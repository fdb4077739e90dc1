package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	Schema        TableSchema        `json:"schema" validate:"required"`
	RecordCount   int                `json:"record_count" validate:"required,gt=0"`
	OutputFormat  OutputFormat       `json:"output_format" validate:"omitempty,oneof=csv json parquet both all"`
	StorageOption StorageOptions     `json:"storage_option" validate:"dive,oneof=file relational object_store document both all"`
	Seed          *uint64            `json:"seed,omitempty"`
	IDPools       map[string][]int64 `json:"id_pools,omitempty"`
}

// GenerateResponse is returned once the job has been queued
type GenerateResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatusResponse is returned by the status endpoint. Progress fields are
// present while the job runs; Result or Error once it is terminal.
type JobStatusResponse struct {
	JobID           string            `json:"jobId"`
	Status          JobStatus         `json:"status"`
	Current         int               `json:"current"`
	Total           int               `json:"total"`
	CompletedChunks int               `json:"completedChunks"`
	TotalChunks     int               `json:"totalChunks"`
	Message         string            `json:"message,omitempty"`
	Error           *string           `json:"error,omitempty"`
	Result          *GenerationResult `json:"result,omitempty"`
}

// SaveSchemaResponse is returned after a schema definition is stored
type SaveSchemaResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// StorageOptions is a set of storage destinations. It decodes from either a
// single string or a list of strings.
type StorageOptions []StorageOption

func (o *StorageOptions) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*o = nil
			return nil
		}
		*o = StorageOptions{StorageOption(strings.ToLower(single))}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("storage_option must be a string or a list of strings")
	}
	out := make(StorageOptions, 0, len(many))
	for _, s := range many {
		out = append(out, StorageOption(strings.ToLower(s)))
	}
	*o = out
	return nil
}

// Wants reports whether the set requests the given destination, expanding
// the both/all shorthands.
func (o StorageOptions) Wants(target StorageOption) bool {
	if len(o) == 0 {
		return target == StorageFile
	}
	for _, opt := range o {
		switch opt {
		case target, StorageAll:
			return true
		case StorageBoth:
			if target == StorageRelational || target == StorageObjectStore {
				return true
			}
		}
	}
	return false
}

// SaveSchemaRequest is the body of POST /api/schemas
type SaveSchemaRequest struct {
	TableName string          `json:"table_name" validate:"required"`
	Schema    json.RawMessage `json:"schema" validate:"required"`
}
