package repositories

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventsCollection  = "invitation_events"
	RollupsCollection = "invitation_daily_rollups"
)

// Document é a unidade gravada no store. Body é um objeto JSON plano: cada
// campo de primeiro nível é mesclado individualmente no upsert. Instant é o
// campo indexado usado nas consultas por intervalo.
type Document struct {
	Key     string
	Instant time.Time
	Body    json.RawMessage
}

// RangeQuery selects documents with From <= Instant < Until whose body
// string fields equal every entry of Filters.
type RangeQuery struct {
	Filters map[string]string
	From    time.Time
	Until   time.Time
}

// DocumentStore is the persistence contract shared by every backend.
//
// UpsertBatch writes all documents atomically: either every document of the
// batch becomes visible or none does. Each document is merged field by field
// into the one stored under the same key, so repeating an identical batch is
// a no-op. QueryRange returns matches ordered by Instant then Key.
type DocumentStore interface {
	UpsertBatch(ctx context.Context, collection string, docs []Document) error
	QueryRange(ctx context.Context, collection string, query RangeQuery) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}
