package model

import (
	"encoding/json"
	"time"
)

// Job is the persisted state of one generation request
type Job struct {
	ID              string          `json:"id"`
	Status          JobStatus       `json:"status"`
	Current         int             `json:"current"`
	Total           int             `json:"total"`
	CompletedChunks int             `json:"completedChunks"`
	TotalChunks     int             `json:"totalChunks"`
	Message         string          `json:"message,omitempty"`
	Error           *string         `json:"error,omitempty"`
	ErrorKind       string          `json:"errorKind,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// GenerationJobPayload is the task body handed to the worker
type GenerationJobPayload struct {
	Schema        TableSchema        `json:"schema"`
	RecordCount   int                `json:"record_count"`
	OutputFormat  OutputFormat       `json:"output_format"`
	StorageOption StorageOptions     `json:"storage_option"`
	Seed          uint64             `json:"seed"`
	IDPools       map[string][]int64 `json:"id_pools,omitempty"`
}

// Progress is a point-in-time view of a running job
type Progress struct {
	Status          JobStatus `json:"status"`
	Current         int       `json:"current"`
	Total           int       `json:"total"`
	CompletedChunks int       `json:"completedChunks"`
	TotalChunks     int       `json:"totalChunks"`
	Message         string    `json:"message"`
	Error           string    `json:"error,omitempty"`
}
