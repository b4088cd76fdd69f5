// Package redisstore implements the document store on top of the shared
// Redis client.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	infraredis "invitationmetrics/src/infra/redis"
	"invitationmetrics/src/repositories"
)

var _ repositories.DocumentStore = (*DocumentStore)(nil)

// instantField is stored next to the body fields of every document hash.
const instantField = "_instant"

// DocumentStore guarda cada documento como um hash (um campo por campo do
// body) e indexa os instantes em um sorted set por coleção. A hash tag
// {collection} mantém todas as chaves de uma coleção no mesmo slot do
// cluster, o que permite MULTI/EXEC no batch inteiro.
type DocumentStore struct {
	client    *infraredis.RedisClient
	keyPrefix string
}

func NewDocumentStore(client *infraredis.RedisClient, keyPrefix string) *DocumentStore {
	return &DocumentStore{client: client, keyPrefix: keyPrefix}
}

func (s *DocumentStore) docKey(collection string, key string) string {
	return fmt.Sprintf("%s{%s}:doc:%s", s.keyPrefix, collection, key)
}

func (s *DocumentStore) indexKey(collection string) string {
	return fmt.Sprintf("%s{%s}:by_instant", s.keyPrefix, collection)
}

func (s *DocumentStore) UpsertBatch(ctx context.Context, collection string, docs []repositories.Document) error {
	if len(docs) == 0 {
		return nil
	}

	docs, err := repositories.CoalesceBatch(docs)
	if err != nil {
		return fmt.Errorf("invalid batch for %s: %w", collection, err)
	}

	type prepared struct {
		key    string
		fields map[string]interface{}
		score  float64
	}

	writes := make([]prepared, 0, len(docs))
	for _, doc := range docs {
		body, err := repositories.DecodeBody(doc.Body)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.Key, err)
		}

		fields := make(map[string]interface{}, len(body)+1)
		for field, value := range body {
			fields[field] = string(value)
		}
		fields[instantField] = doc.Instant.UTC().Format(time.RFC3339Nano)

		writes = append(writes, prepared{
			key:    doc.Key,
			fields: fields,
			score:  float64(doc.Instant.UnixMilli()),
		})
	}

	// HSET só toca os campos enviados, os demais campos do hash são preservados.
	_, err = s.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range writes {
			pipe.HSet(ctx, s.docKey(collection, w.key), w.fields)
			pipe.ZAdd(ctx, s.indexKey(collection), redis.Z{Score: w.score, Member: w.key})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit redis batch: %w", err)
	}

	return nil
}

func (s *DocumentStore) QueryRange(ctx context.Context, collection string, q repositories.RangeQuery) ([]repositories.Document, error) {
	keys, err := s.client.Client().ZRangeByScore(ctx, s.indexKey(collection), &redis.ZRangeBy{
		Min: strconv.FormatInt(q.From.UnixMilli(), 10),
		Max: "(" + strconv.FormatInt(q.Until.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query instant index: %w", err)
	}

	if len(keys) == 0 {
		return []repositories.Document{}, nil
	}

	pipe := s.client.Client().Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, s.docKey(collection, key))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	docs := make([]repositories.Document, 0, len(keys))
	for i, cmd := range cmds {
		stored := cmd.Val()
		if len(stored) == 0 {
			continue
		}

		doc, fields, err := decodeHash(keys[i], stored)
		if err != nil {
			return nil, err
		}

		if doc.Instant.Before(q.From) || !doc.Instant.Before(q.Until) {
			continue
		}

		if repositories.MatchesFilters(fields, q.Filters) {
			docs = append(docs, doc)
		}
	}

	repositories.SortDocuments(docs)
	return docs, nil
}

func decodeHash(key string, stored map[string]string) (repositories.Document, map[string]json.RawMessage, error) {
	instant, err := time.Parse(time.RFC3339Nano, stored[instantField])
	if err != nil {
		return repositories.Document{}, nil, fmt.Errorf("document %s has invalid instant: %w", key, err)
	}

	fields := make(map[string]json.RawMessage, len(stored))
	for field, value := range stored {
		if field == instantField {
			continue
		}
		fields[field] = json.RawMessage(value)
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return repositories.Document{}, nil, fmt.Errorf("document %s: %w", key, err)
	}

	return repositories.Document{Key: key, Instant: instant.UTC(), Body: body}, fields, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

func (s *DocumentStore) Close() error {
	return s.client.Close()
}
