package sink

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/retry"
)

type fakeTable struct {
	mu    sync.Mutex
	calls int
	fail  int
	table string
}

func (f *fakeTable) WriteTable(ctx context.Context, table string, schema *model.TableSchema, records []model.Record) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.table = table
	if f.calls <= f.fail {
		return 0, errors.New("deadlock detected")
	}
	return int64(len(records)), nil
}

type fakeBucket struct {
	mu        sync.Mutex
	ensureErr error
	failNames map[string]bool
	uploaded  []string
	metadata  []map[string]string
}

func (f *fakeBucket) EnsureBucket(ctx context.Context) error { return f.ensureErr }

func (f *fakeBucket) UploadFile(ctx context.Context, key, path string, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for suffix := range f.failNames {
		if strings.HasSuffix(path, suffix) {
			return "", fmt.Errorf("upload of %s refused", key)
		}
	}
	f.uploaded = append(f.uploaded, key)
	f.metadata = append(f.metadata, metadata)
	return "s3://bucket/" + key, nil
}

type panickyDocs struct{}

func (panickyDocs) InsertRecords(ctx context.Context, collection string, records []model.Record) (int, error) {
	panic("driver exploded")
}

func testCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c := NewCoordinator(t.TempDir(), retry.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}, nil)
	c.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c
}

func resultFor(t *testing.T, out Outcome, kind model.SinkKind) model.StorageResult {
	t.Helper()
	for _, r := range out.Results {
		if r.Sink == kind {
			return r
		}
	}
	t.Fatalf("no result for sink %s", kind)
	return model.StorageResult{}
}

func TestPersist_ObjectStoreFailureDoesNotAffectRelational(t *testing.T) {
	c := testCoordinator(t)
	table := &fakeTable{}
	c.Relational = table
	c.ObjectStore = &fakeBucket{ensureErr: errors.New("access denied")}

	out := c.Persist(context.Background(), Request{
		Schema:  sampleSchema(),
		Records: sampleRecords(10),
		Formats: []model.OutputFormat{model.OutputFormatCSV},
		Storage: model.StorageOptions{model.StorageBoth},
	})

	require.Len(t, out.Results, 3)
	assert.Equal(t, model.SinkFileCSV, out.Results[0].Sink)
	assert.Equal(t, model.SinkRelational, out.Results[1].Sink)
	assert.Equal(t, model.SinkObjectStore, out.Results[2].Sink)

	rel := resultFor(t, out, model.SinkRelational)
	assert.Equal(t, model.SinkStatusSuccess, rel.Status)
	assert.Equal(t, int64(10), rel.Detail["rows"])
	assert.Equal(t, "synthetic_order_lines", table.table)

	obj := resultFor(t, out, model.SinkObjectStore)
	assert.Equal(t, model.SinkStatusFailed, obj.Status)
	require.NotNil(t, obj.Error)
	assert.Contains(t, *obj.Error, "access denied")
}

func TestPersist_RelationalRetriesThenSucceeds(t *testing.T) {
	c := testCoordinator(t)
	table := &fakeTable{fail: 2}
	c.Relational = table

	out := c.Persist(context.Background(), Request{
		Schema:  sampleSchema(),
		Records: sampleRecords(3),
		Storage: model.StorageOptions{model.StorageRelational},
	})

	assert.Equal(t, 3, table.calls)
	assert.Equal(t, model.SinkStatusSuccess, resultFor(t, out, model.SinkRelational).Status)
}

func TestPersist_RelationalExhaustsRetries(t *testing.T) {
	c := testCoordinator(t)
	table := &fakeTable{fail: 10}
	c.Relational = table

	out := c.Persist(context.Background(), Request{
		Schema:  sampleSchema(),
		Records: sampleRecords(3),
		Storage: model.StorageOptions{model.StorageRelational},
	})

	rel := resultFor(t, out, model.SinkRelational)
	assert.Equal(t, 3, table.calls)
	assert.Equal(t, model.SinkStatusFailed, rel.Status)
	assert.Contains(t, *rel.Error, "gave up after 3 attempts")
}

func TestPersist_UploadsContinuePastFailedArtifact(t *testing.T) {
	c := testCoordinator(t)
	c.ObjectPrefix = "exports/"
	bucket := &fakeBucket{failNames: map[string]bool{".csv": true}}
	c.ObjectStore = bucket

	out := c.Persist(context.Background(), Request{
		Schema:  sampleSchema(),
		Records: sampleRecords(5),
		Formats: []model.OutputFormat{model.OutputFormatCSV, model.OutputFormatJSON},
		Storage: model.StorageOptions{model.StorageObjectStore},
	})

	obj := resultFor(t, out, model.SinkObjectStore)
	assert.Equal(t, model.SinkStatusFailed, obj.Status)
	assert.Equal(t, 1, obj.Detail["uploaded"])
	assert.Equal(t, 1, obj.Detail["failed"])
	assert.Equal(t, []string{"exports/order_lines_20240102_030405.json"}, bucket.uploaded)
	assert.Equal(t, "order_lines_20240102_030405.json", bucket.metadata[0]["source_file"])
	assert.NotEmpty(t, bucket.metadata[0]["upload_time"])

	assert.Equal(t, filepath.Join(c.OutputDir, "order_lines_20240102_030405.csv"), out.Files["csv"])
	assert.Equal(t, model.SinkStatusSuccess, resultFor(t, out, model.SinkFileJSON).Status)
}

func TestPersist_ObjectStoreWithoutArtifacts(t *testing.T) {
	c := testCoordinator(t)
	c.ObjectStore = &fakeBucket{}

	out := c.Persist(context.Background(), Request{
		Schema:  sampleSchema(),
		Records: sampleRecords(1),
		Storage: model.StorageOptions{model.StorageObjectStore},
	})

	obj := resultFor(t, out, model.SinkObjectStore)
	assert.Equal(t, model.SinkStatusFailed, obj.Status)
	assert.Contains(t, *obj.Error, "no file artifacts")
}

func TestPersist_PanicIsContainedAtSinkBoundary(t *testing.T) {
	c := testCoordinator(t)
	table := &fakeTable{}
	c.Relational = table
	c.Documents = panickyDocs{}

	out := c.Persist(context.Background(), Request{
		Schema:  sampleSchema(),
		Records: sampleRecords(2),
		Storage: model.StorageOptions{model.StorageRelational, model.StorageDocument},
	})

	assert.Equal(t, model.SinkStatusSuccess, resultFor(t, out, model.SinkRelational).Status)
	doc := resultFor(t, out, model.SinkDocumentStore)
	assert.Equal(t, model.SinkStatusFailed, doc.Status)
	assert.Contains(t, *doc.Error, "driver exploded")
}

func TestPersist_UnconfiguredSinkIsReported(t *testing.T) {
	c := testCoordinator(t)

	out := c.Persist(context.Background(), Request{
		Schema:  sampleSchema(),
		Records: sampleRecords(2),
		Formats: []model.OutputFormat{model.OutputFormatJSON},
		Storage: model.StorageOptions{model.StorageRelational},
	})

	require.Len(t, out.Results, 2)
	assert.Equal(t, model.SinkStatusSuccess, out.Results[0].Status)
	assert.Equal(t, model.SinkStatusFailed, out.Results[1].Status)
	assert.Contains(t, *out.Results[1].Error, "not configured")
}
