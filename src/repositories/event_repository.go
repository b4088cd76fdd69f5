package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
)

type EventRepository struct {
	store DocumentStore
}

func NewEventRepository(store DocumentStore) *EventRepository {
	return &EventRepository{store: store}
}

// UpsertEvents grava todos os eventos em um único batch, usando o ExternalID
// como chave. Reprocessar os mesmos eventos não gera duplicatas.
func (r *EventRepository) UpsertEvents(ctx context.Context, events []entities.InvitationEvent) error {
	if len(events) == 0 {
		return nil
	}

	docs := make([]Document, 0, len(events))
	for _, event := range events {
		event.ReceivedAt = event.ReceivedAt.UTC()

		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal invitation event %s: %w", event.ExternalID, err)
		}

		docs = append(docs, Document{
			Key:     event.ExternalID,
			Instant: event.ReceivedAt,
			Body:    body,
		})
	}

	if err := r.store.UpsertBatch(ctx, EventsCollection, docs); err != nil {
		return &domain.StoreError{Op: "upsert", Collection: EventsCollection, Err: err}
	}

	return nil
}

// FindEvents returns the stored events of tenant/account received within r,
// from the first instant of r.From up to, but excluding, the midnight after r.To.
func (r *EventRepository) FindEvents(ctx context.Context, tenantID string, accountID string, dateRange domain.DateRange) ([]entities.InvitationEvent, error) {
	from, until := dateRange.QueryBounds()

	docs, err := r.store.QueryRange(ctx, EventsCollection, RangeQuery{
		Filters: map[string]string{"tenantId": tenantID, "accountId": accountID},
		From:    from,
		Until:   until,
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "query", Collection: EventsCollection, Err: err}
	}

	events := make([]entities.InvitationEvent, 0, len(docs))
	for _, doc := range docs {
		var event entities.InvitationEvent
		if err := json.Unmarshal(doc.Body, &event); err != nil {
			return nil, &domain.StoreError{
				Op:         "decode",
				Collection: EventsCollection,
				Err:        fmt.Errorf("document %s: %w", doc.Key, err),
			}
		}
		events = append(events, event)
	}

	return events, nil
}
