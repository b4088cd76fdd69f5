// Package memstore provides an in-process DocumentStore, used by default in
// local runs and by the unit tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"invitationmetrics/src/repositories"
)

var ErrStoreClosed = errors.New("memstore: store is closed")

var _ repositories.DocumentStore = (*Store)(nil)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]repositories.Document
	closed      bool
}

func New() *Store {
	return &Store{collections: make(map[string]map[string]repositories.Document)}
}

// UpsertBatch merges the whole batch into a staged copy of the collection and
// only swaps it in once every document merged successfully.
func (s *Store) UpsertBatch(_ context.Context, collection string, docs []repositories.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	current := s.collections[collection]
	staged := make(map[string]repositories.Document, len(current)+len(docs))
	for key, doc := range current {
		staged[key] = doc
	}

	for _, doc := range docs {
		if doc.Key == "" {
			return fmt.Errorf("memstore: document without key in %s", collection)
		}

		existing := staged[doc.Key]
		body, err := repositories.MergeBodies(existing.Body, doc.Body)
		if err != nil {
			return fmt.Errorf("memstore: merge %s/%s: %w", collection, doc.Key, err)
		}

		staged[doc.Key] = repositories.Document{
			Key:     doc.Key,
			Instant: doc.Instant.UTC(),
			Body:    body,
		}
	}

	s.collections[collection] = staged
	return nil
}

func (s *Store) QueryRange(_ context.Context, collection string, query repositories.RangeQuery) ([]repositories.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	result := make([]repositories.Document, 0)
	for _, doc := range s.collections[collection] {
		if !inRange(doc.Instant, query.From, query.Until) {
			continue
		}

		fields, err := repositories.DecodeBody(doc.Body)
		if err != nil {
			return nil, fmt.Errorf("memstore: decode %s/%s: %w", collection, doc.Key, err)
		}

		if repositories.MatchesFilters(fields, query.Filters) {
			result = append(result, doc)
		}
	}

	repositories.SortDocuments(result)
	return result, nil
}

// Count returns the number of documents stored in collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Get returns the document stored under key, if any.
func (s *Store) Get(collection string, key string) (repositories.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][key]
	return doc, ok
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func inRange(instant time.Time, from time.Time, until time.Time) bool {
	return !instant.Before(from) && instant.Before(until)
}
