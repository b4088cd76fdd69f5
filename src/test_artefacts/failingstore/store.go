// Package failingstore wraps a DocumentStore and fails chosen operations,
// so tests can check that a failed step aborts everything after it.
package failingstore

import (
	"context"
	"errors"
	"sync"

	"invitationmetrics/src/repositories"
)

var ErrInjected = errors.New("failingstore: injected failure")

var _ repositories.DocumentStore = (*Store)(nil)

type Store struct {
	inner repositories.DocumentStore

	mu          sync.Mutex
	failUpserts map[string]bool
	failQueries map[string]bool
	upserts     map[string]int
}

func Wrap(inner repositories.DocumentStore) *Store {
	return &Store{
		inner:       inner,
		failUpserts: make(map[string]bool),
		failQueries: make(map[string]bool),
		upserts:     make(map[string]int),
	}
}

func (s *Store) FailUpsertsOn(collection string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpserts[collection] = true
	return s
}

func (s *Store) FailQueriesOn(collection string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failQueries[collection] = true
	return s
}

// UpsertCalls counts the batches that reached the store for collection, failed ones included.
func (s *Store) UpsertCalls(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts[collection]
}

func (s *Store) UpsertBatch(ctx context.Context, collection string, docs []repositories.Document) error {
	s.mu.Lock()
	s.upserts[collection]++
	fail := s.failUpserts[collection]
	s.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return s.inner.UpsertBatch(ctx, collection, docs)
}

func (s *Store) QueryRange(ctx context.Context, collection string, query repositories.RangeQuery) ([]repositories.Document, error) {
	s.mu.Lock()
	fail := s.failQueries[collection]
	s.mu.Unlock()

	if fail {
		return nil, ErrInjected
	}
	return s.inner.QueryRange(ctx, collection, query)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *Store) Close() error {
	return s.inner.Close()
}
