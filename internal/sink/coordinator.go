package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/retry"
)

// TableWriter appends records to a relational table, creating it if needed.
type TableWriter interface {
	WriteTable(ctx context.Context, table string, schema *model.TableSchema, records []model.Record) (int64, error)
}

// ObjectUploader stores local files in a bucket.
type ObjectUploader interface {
	EnsureBucket(ctx context.Context) error
	UploadFile(ctx context.Context, key, path string, metadata map[string]string) (string, error)
}

// DocumentWriter inserts records into a document collection.
type DocumentWriter interface {
	InsertRecords(ctx context.Context, collection string, records []model.Record) (int, error)
}

// Request describes one persistence pass.
type Request struct {
	Schema  *model.TableSchema
	Records []model.Record
	Formats []model.OutputFormat
	Storage model.StorageOptions
}

// Outcome lists the files written and one result per attempted sink.
type Outcome struct {
	Files   map[string]string
	Results []model.StorageResult
}

// Coordinator writes a record set to every requested sink. A failing sink
// is reported in its own StorageResult and never stops the others.
type Coordinator struct {
	OutputDir    string
	TablePrefix  string
	ObjectPrefix string
	Files        []FileWriter
	Relational   TableWriter
	ObjectStore  ObjectUploader
	Documents    DocumentWriter
	Retry        retry.Policy
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewCoordinator returns a coordinator with the CSV, JSON and Parquet writers.
func NewCoordinator(outputDir string, policy retry.Policy, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		OutputDir:   outputDir,
		TablePrefix: "synthetic_",
		Files:       []FileWriter{CSVWriter{}, JSONWriter{}, ParquetWriter{}},
		Retry:       policy,
		Logger:      logger,
		Now:         time.Now,
	}
}

// TableName is the relational table and document collection for schema.
func (c *Coordinator) TableName(schema *model.TableSchema) string {
	return c.TablePrefix + schema.SanitizedName()
}

// Persist runs file sinks first, then the relational, object-store and
// document sinks concurrently. Results come back in that fixed order.
func (c *Coordinator) Persist(ctx context.Context, req Request) Outcome {
	out := Outcome{Files: make(map[string]string)}
	stamp := c.Now()

	var artifacts []string
	for _, format := range req.Formats {
		res, path := c.writeFile(req, format, stamp)
		out.Results = append(out.Results, res)
		if res.Succeeded() {
			out.Files[string(format)] = path
			artifacts = append(artifacts, path)
		}
	}

	type remote struct {
		kind model.SinkKind
		run  func(context.Context) model.StorageResult
	}
	var remotes []remote
	if req.Storage.Wants(model.StorageRelational) {
		remotes = append(remotes, remote{model.SinkRelational, func(ctx context.Context) model.StorageResult {
			return c.writeRelational(ctx, req)
		}})
	}
	if req.Storage.Wants(model.StorageObjectStore) {
		remotes = append(remotes, remote{model.SinkObjectStore, func(ctx context.Context) model.StorageResult {
			return c.uploadArtifacts(ctx, artifacts)
		}})
	}
	if req.Storage.Wants(model.StorageDocument) {
		remotes = append(remotes, remote{model.SinkDocumentStore, func(ctx context.Context) model.StorageResult {
			return c.writeDocuments(ctx, req)
		}})
	}

	results := make([]model.StorageResult, len(remotes))
	var wg sync.WaitGroup
	for i, r := range remotes {
		results[i] = model.StorageResult{Sink: r.kind, Status: model.SinkStatusNotAttempted}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					results[i] = failed(r.kind, fmt.Errorf("panic: %v", p), nil)
				}
			}()
			results[i] = r.run(ctx)
		}()
	}
	wg.Wait()

	for _, res := range results {
		if res.Status == model.SinkStatusFailed {
			c.Logger.Warn("sink write failed", zap.String("sink", string(res.Sink)), zap.Stringp("error", res.Error))
		}
	}
	out.Results = append(out.Results, results...)
	return out
}

func (c *Coordinator) writeFile(req Request, format model.OutputFormat, stamp time.Time) (model.StorageResult, string) {
	kind := model.FileSinkFor(format)
	writer := c.fileWriter(format)
	if writer == nil {
		return failed(kind, fmt.Errorf("no writer for format %q", format), nil), ""
	}
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return failed(kind, &errs.SinkWriteError{Sink: string(kind), Err: err}, nil), ""
	}

	path := filepath.Join(c.OutputDir, ArtifactName(req.Schema, stamp, string(format)))
	if err := writer.Write(path, req.Schema, req.Records); err != nil {
		return failed(kind, &errs.SinkWriteError{Sink: string(kind), Err: err}, map[string]any{"path": path}), ""
	}
	c.Logger.Info("wrote file artifact", zap.String("format", string(format)), zap.String("path", path), zap.Int("records", len(req.Records)))
	return succeeded(kind, map[string]any{"path": path, "records": len(req.Records)}), path
}

func (c *Coordinator) fileWriter(format model.OutputFormat) FileWriter {
	for _, w := range c.Files {
		if w.Format() == format {
			return w
		}
	}
	return nil
}

func (c *Coordinator) writeRelational(ctx context.Context, req Request) model.StorageResult {
	kind := model.SinkRelational
	if c.Relational == nil {
		return failed(kind, errs.ErrNotConfigured, nil)
	}
	table := c.TableName(req.Schema)

	var rows int64
	err := c.Retry.Do(ctx, "relational write", func(ctx context.Context, attempt int) error {
		n, err := c.Relational.WriteTable(ctx, table, req.Schema, req.Records)
		if err != nil {
			return &errs.SinkWriteError{Sink: string(kind), Err: err}
		}
		rows = n
		return nil
	}, c.notify(kind))
	if err != nil {
		return failed(kind, err, map[string]any{"table": table})
	}
	return succeeded(kind, map[string]any{"table": table, "rows": rows})
}

// uploadArtifacts uploads every artifact independently; one failed upload
// does not stop the rest.
func (c *Coordinator) uploadArtifacts(ctx context.Context, artifacts []string) model.StorageResult {
	kind := model.SinkObjectStore
	if c.ObjectStore == nil {
		return failed(kind, errs.ErrNotConfigured, nil)
	}
	if len(artifacts) == 0 {
		return failed(kind, errs.ErrNoArtifacts, nil)
	}

	err := c.Retry.Do(ctx, "ensure bucket", func(ctx context.Context, attempt int) error {
		if err := c.ObjectStore.EnsureBucket(ctx); err != nil {
			return &errs.SinkWriteError{Sink: string(kind), Err: err}
		}
		return nil
	}, c.notify(kind))
	if err != nil {
		return failed(kind, err, nil)
	}

	uploads := make([]map[string]any, 0, len(artifacts))
	var firstErr error
	failures := 0
	for _, path := range artifacts {
		name := filepath.Base(path)
		key := c.ObjectPrefix + name
		metadata := map[string]string{
			"source_file": name,
			"upload_time": c.Now().UTC().Format(time.RFC3339),
		}

		var location string
		err := c.Retry.Do(ctx, "upload "+name, func(ctx context.Context, attempt int) error {
			loc, err := c.ObjectStore.UploadFile(ctx, key, path, metadata)
			if err != nil {
				return &errs.SinkWriteError{Sink: string(kind), Err: err}
			}
			location = loc
			return nil
		}, c.notify(kind))

		entry := map[string]any{"file": name, "key": key}
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			entry["status"] = model.SinkStatusFailed
			entry["error"] = err.Error()
		} else {
			entry["status"] = model.SinkStatusSuccess
			entry["location"] = location
		}
		uploads = append(uploads, entry)
	}

	detail := map[string]any{"uploads": uploads, "uploaded": len(artifacts) - failures, "failed": failures}
	if failures > 0 {
		return failed(kind, fmt.Errorf("%d of %d uploads failed: %w", failures, len(artifacts), firstErr), detail)
	}
	return succeeded(kind, detail)
}

func (c *Coordinator) writeDocuments(ctx context.Context, req Request) model.StorageResult {
	kind := model.SinkDocumentStore
	if c.Documents == nil {
		return failed(kind, errs.ErrNotConfigured, nil)
	}
	collection := c.TableName(req.Schema)

	var inserted int
	err := c.Retry.Do(ctx, "document insert", func(ctx context.Context, attempt int) error {
		n, err := c.Documents.InsertRecords(ctx, collection, req.Records)
		if err != nil {
			return &errs.SinkWriteError{Sink: string(kind), Err: err}
		}
		inserted = n
		return nil
	}, c.notify(kind))
	if err != nil {
		return failed(kind, err, map[string]any{"collection": collection})
	}
	return succeeded(kind, map[string]any{"collection": collection, "inserted": inserted})
}

func (c *Coordinator) notify(kind model.SinkKind) retry.NotifyFunc {
	return func(attempt int, err error, wait time.Duration) {
		c.Logger.Warn("sink write attempt failed",
			zap.String("sink", string(kind)),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}
}

func succeeded(kind model.SinkKind, detail map[string]any) model.StorageResult {
	return model.StorageResult{Sink: kind, Status: model.SinkStatusSuccess, Detail: detail}
}

func failed(kind model.SinkKind, err error, detail map[string]any) model.StorageResult {
	msg := err.Error()
	if errors.Is(err, errs.ErrNotConfigured) {
		msg = fmt.Sprintf("%s: %s", kind, err)
	}
	return model.StorageResult{Sink: kind, Status: model.SinkStatusFailed, Error: &msg, Detail: detail}
}
