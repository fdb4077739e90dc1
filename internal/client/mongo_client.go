package client

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/datasynth/api/internal/config"
	"github.com/datasynth/api/internal/model"
)

const insertBatchSize = 1000

// DocumentStore writes generated records into MongoDB collections
type DocumentStore struct {
	client *mongo.Client
	dbName string
}

// NewDocumentStore connects to MongoDB and verifies the connection
func NewDocumentStore(ctx context.Context, cfg config.MongoConfig) (*DocumentStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI).SetConnectTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &DocumentStore{client: client, dbName: cfg.Database}, nil
}

// InsertRecords inserts records into collection in batches, keeping field order
func (d *DocumentStore) InsertRecords(ctx context.Context, collection string, records []model.Record) (int, error) {
	coll := d.client.Database(d.dbName).Collection(collection)

	inserted := 0
	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		docs := make([]bson.D, 0, end-start)
		for _, rec := range records[start:end] {
			docs = append(docs, ToDocument(rec))
		}

		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert into %s: %w", collection, err)
		}
		inserted += len(res.InsertedIDs)
	}

	return inserted, nil
}

// Close disconnects the client
func (d *DocumentStore) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// ToDocument converts a record into an ordered BSON document. Nested records
// become sub-documents and repeated records become arrays.
func ToDocument(rec model.Record) bson.D {
	doc := make(bson.D, 0, len(rec.Columns))
	for _, col := range rec.Columns {
		doc = append(doc, bson.E{Key: col, Value: toBSONValue(rec.Values[col])})
	}
	return doc
}

func toBSONValue(v any) any {
	switch t := v.(type) {
	case model.Record:
		return ToDocument(t)
	case []model.Record:
		arr := make(bson.A, len(t))
		for i, r := range t {
			arr[i] = ToDocument(r)
		}
		return arr
	case []any:
		arr := make(bson.A, len(t))
		for i, e := range t {
			arr[i] = toBSONValue(e)
		}
		return arr
	}
	return v
}
