package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"invitationmetrics/src/repositories"
)

const instantField = "_instant"

var _ repositories.DocumentStore = (*DocumentStore)(nil)

// DocumentStore maps each logical collection to a MongoDB collection. The
// document key is the _id, the body fields live at the top level and the
// indexed instant is kept in _instant.
type DocumentStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDocumentStore(client *mongo.Client, database string) *DocumentStore {
	return &DocumentStore{client: client, db: client.Database(database)}
}

// Migrate creates the range query indexes of the given collections.
func (s *DocumentStore) Migrate(ctx context.Context, collections ...string) error {
	for _, collection := range collections {
		_, err := s.db.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: instantField, Value: 1}}},
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "accountId", Value: 1}, {Key: instantField, Value: 1}}},
		})
		if err != nil {
			return fmt.Errorf("migrate %s indexes: %w", collection, err)
		}
	}

	return nil
}

// UpsertBatch runs one upsert per document with $set, so fields missing from
// the new body are left untouched, inside a single transaction.
func (s *DocumentStore) UpsertBatch(ctx context.Context, collection string, docs []repositories.Document) error {
	if len(docs) == 0 {
		return nil
	}

	docs, err := repositories.CoalesceBatch(docs)
	if err != nil {
		return fmt.Errorf("invalid batch for %s: %w", collection, err)
	}

	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		var fields bson.D
		if err := bson.UnmarshalExtJSON(doc.Body, false, &fields); err != nil {
			return fmt.Errorf("document %s: %w", doc.Key, err)
		}

		set := append(fields, bson.E{Key: instantField, Value: doc.Instant.UTC()})
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: doc.Key}}).
			SetUpdate(bson.D{{Key: "$set", Value: set}}).
			SetUpsert(true))
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
		return s.db.Collection(collection).BulkWrite(txCtx, models, options.BulkWrite().SetOrdered(true))
	})
	if err != nil {
		return fmt.Errorf("failed to commit mongo batch: %w", err)
	}

	return nil
}

func (s *DocumentStore) QueryRange(ctx context.Context, collection string, q repositories.RangeQuery) ([]repositories.Document, error) {
	filter := bson.D{{Key: instantField, Value: bson.D{
		{Key: "$gte", Value: q.From.UTC()},
		{Key: "$lt", Value: q.Until.UTC()},
	}}}
	for field, value := range q.Filters {
		filter = append(filter, bson.E{Key: field, Value: value})
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: instantField, Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := make([]repositories.Document, 0)
	for cursor.Next(ctx) {
		doc, err := decodeDocument(cursor.Current)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

func decodeDocument(raw bson.Raw) (repositories.Document, error) {
	var stored bson.D
	if err := bson.Unmarshal(raw, &stored); err != nil {
		return repositories.Document{}, fmt.Errorf("failed to decode document: %w", err)
	}

	var (
		key     string
		instant time.Time
		body    = make(bson.D, 0, len(stored))
	)

	for _, elem := range stored {
		switch elem.Key {
		case "_id":
			key = fmt.Sprint(elem.Value)
		case instantField:
			if dt, ok := elem.Value.(bson.DateTime); ok {
				instant = dt.Time().UTC()
			}
		default:
			body = append(body, elem)
		}
	}

	encoded, err := bson.MarshalExtJSON(body, false, false)
	if err != nil {
		return repositories.Document{}, fmt.Errorf("failed to encode document %s: %w", key, err)
	}

	return repositories.Document{Key: key, Instant: instant, Body: encoded}, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *DocumentStore) Close() error {
	return s.client.Disconnect(context.Background())
}
