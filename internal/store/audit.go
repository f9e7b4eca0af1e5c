package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
)

const (
	collPipelineJobs    = "pipeline_jobs"
	collExtractionAudit = "extraction_audit"
)

// AuditStore is the append-only document tier. Job documents and per-symbol
// extraction audits are inserted, never updated: history is reconstructed by
// reading forward, so a bug can be traced to the exact payload that caused it.
type AuditStore struct {
	db *mongo.Database
}

func NewAuditStore(client *mongo.Client, database string) *AuditStore {
	return &AuditStore{db: client.Database(database)}
}

// JobDocument is the persisted form of one pipeline job event.
type JobDocument struct {
	JobID      string    `bson:"job_id"`
	Status     string    `bson:"status"`
	Symbols    int       `bson:"symbols"`
	Succeeded  int       `bson:"succeeded"`
	Failed     int       `bson:"failed"`
	StartedAt  time.Time `bson:"started_at"`
	FinishedAt time.Time `bson:"finished_at,omitempty"`
	Error      string    `bson:"error,omitempty"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// ExtractionDocument captures one symbol's canonical record as extracted.
type ExtractionDocument struct {
	JobID        string                 `bson:"job_id"`
	Symbol       string                 `bson:"symbol"`
	Source       string                 `bson:"source"`
	Fields       map[string]interface{} `bson:"fields"`
	Completeness float64                `bson:"completeness"`
	ExtractedAt  time.Time              `bson:"extracted_at"`
	RecordedAt   time.Time              `bson:"recorded_at"`
}

// AppendJob inserts one job status document.
func (a *AuditStore) AppendJob(ctx context.Context, doc JobDocument) error {
	doc.RecordedAt = time.Now()
	_, err := a.db.Collection(collPipelineJobs).InsertOne(ctx, doc)
	return err
}

// AppendExtraction inserts one per-symbol audit document.
func (a *AuditStore) AppendExtraction(ctx context.Context, jobID string, rec *canonical.Record) error {
	source := ""
	if len(rec.Sources) > 0 {
		source = rec.Sources[0]
	}
	doc := ExtractionDocument{
		JobID:        jobID,
		Symbol:       rec.Symbol,
		Source:       source,
		Fields:       rec.Fields,
		Completeness: rec.Completeness(),
		ExtractedAt:  rec.AsOf,
		RecordedAt:   time.Now(),
	}
	_, err := a.db.Collection(collExtractionAudit).InsertOne(ctx, doc)
	return err
}

// RecentJobs returns the latest limit job documents, newest first.
func (a *AuditStore) RecentJobs(ctx context.Context, limit int64) ([]JobDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(limit)

	cur, err := a.db.Collection(collPipelineJobs).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []JobDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ExtractionTrail returns a symbol's audit documents, newest first.
func (a *AuditStore) ExtractionTrail(ctx context.Context, symbol string, limit int64) ([]ExtractionDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(limit)

	cur, err := a.db.Collection(collExtractionAudit).Find(ctx, bson.D{{Key: "symbol", Value: symbol}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []ExtractionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Ping verifies connectivity for the health endpoint.
func (a *AuditStore) Ping(ctx context.Context) error {
	return a.db.Client().Ping(ctx, nil)
}
