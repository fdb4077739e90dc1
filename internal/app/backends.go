// Package app assembles the storage backends and the generation pipeline
// shared by the API server and the CLI.
package app

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/datasynth/api/internal/client"
	"github.com/datasynth/api/internal/config"
	"github.com/datasynth/api/internal/database"
	"github.com/datasynth/api/internal/pipeline"
	"github.com/datasynth/api/internal/retry"
	"github.com/datasynth/api/internal/sink"
)

// Backends holds the optional sinks. A nil field means the backend is not
// configured or could not be reached at startup.
type Backends struct {
	Store     *database.Store
	Objects   *client.S3Client
	Documents *client.DocumentStore
	logger    *zap.Logger
}

// OpenBackends connects every configured backend. Connection failures are
// logged and leave the backend unset so requests to it report FAILED.
func OpenBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Backends {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backends{logger: logger}

	if cfg.Database.Driver != "" {
		if cfg.Database.Driver == "sqlite" {
			_ = os.MkdirAll(cfg.Storage.OutputDir, 0o755)
		}
		store, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Warn("relational store not available", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		} else {
			b.Store = store
		}
	}

	if cfg.ObjectStore.Configured() {
		s3Client, err := client.NewS3Client(ctx, cfg.ObjectStore)
		if err != nil {
			logger.Warn("object store not available", zap.Error(err))
		} else {
			b.Objects = s3Client
		}
	} else {
		logger.Info("object store not configured")
	}

	if cfg.Mongo.URI != "" {
		docs, err := client.NewDocumentStore(ctx, cfg.Mongo)
		if err != nil {
			logger.Warn("document store not available", zap.Error(err))
		} else {
			b.Documents = docs
		}
	}

	return b
}

// Status reports which backends are usable
func (b *Backends) Status() map[string]bool {
	return map[string]bool{
		"relational":   b.Store != nil,
		"object_store": b.Objects != nil,
		"document":     b.Documents != nil,
	}
}

// Close releases every open backend
func (b *Backends) Close(ctx context.Context) {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			b.logger.Warn("failed to close relational store", zap.Error(err))
		}
	}
	if b.Documents != nil {
		if err := b.Documents.Close(ctx); err != nil {
			b.logger.Warn("failed to close document store", zap.Error(err))
		}
	}
}

// Coordinator builds a persistence coordinator wired to the open backends
func (b *Backends) Coordinator(cfg *config.Config) *sink.Coordinator {
	c := sink.NewCoordinator(cfg.Storage.OutputDir, retry.SinkPolicy(cfg.Generation), b.logger)
	c.ObjectPrefix = cfg.ObjectStore.Prefix
	if b.Store != nil {
		c.Relational = b.Store
	}
	if b.Objects != nil {
		c.ObjectStore = b.Objects
	}
	if b.Documents != nil {
		c.Documents = b.Documents
	}
	return c
}

// Runner builds the generation pipeline persisting through p
func Runner(cfg *config.Config, p pipeline.Persister, logger *zap.Logger) *pipeline.Runner {
	return &pipeline.Runner{
		ChunkSize:  cfg.Generation.ChunkSize,
		Workers:    cfg.Generation.Workers,
		ChunkRetry: retry.ChunkPolicy(cfg.Generation),
		Persister:  p,
		Logger:     logger,
	}
}
