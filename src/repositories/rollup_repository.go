package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
	"invitationmetrics/src/helper/calendar"
)

type RollupRepository struct {
	store DocumentStore
}

func NewRollupRepository(store DocumentStore) *RollupRepository {
	return &RollupRepository{store: store}
}

// RollupKey is the natural key of a rollup: one document per tenant, account and day.
func RollupKey(tenantID string, accountID string, date string) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, accountID, date)
}

// UpsertRollups overwrites the rollups of the given days in a single batch.
func (r *RollupRepository) UpsertRollups(ctx context.Context, rollups []entities.DailyRollup) error {
	if len(rollups) == 0 {
		return nil
	}

	docs := make([]Document, 0, len(rollups))
	for _, rollup := range rollups {
		day, err := calendar.ParseDay(rollup.Date)
		if err != nil {
			return fmt.Errorf("invalid rollup date: %w", err)
		}

		rollup.UpdatedAt = rollup.UpdatedAt.UTC()
		body, err := json.Marshal(rollup)
		if err != nil {
			return fmt.Errorf("failed to marshal rollup %s: %w", rollup.Date, err)
		}

		docs = append(docs, Document{
			Key:     RollupKey(rollup.TenantID, rollup.AccountID, rollup.Date),
			Instant: day,
			Body:    body,
		})
	}

	if err := r.store.UpsertBatch(ctx, RollupsCollection, docs); err != nil {
		return &domain.StoreError{Op: "upsert", Collection: RollupsCollection, Err: err}
	}

	return nil
}

// FindRollups returns the stored rollups of the range, ascending by date.
// Days never computed are simply absent.
func (r *RollupRepository) FindRollups(ctx context.Context, tenantID string, accountID string, dateRange domain.DateRange) ([]entities.DailyRollup, error) {
	from, until := dateRange.QueryBounds()

	docs, err := r.store.QueryRange(ctx, RollupsCollection, RangeQuery{
		Filters: map[string]string{"tenantId": tenantID, "accountId": accountID},
		From:    from,
		Until:   until,
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "query", Collection: RollupsCollection, Err: err}
	}

	rollups := make([]entities.DailyRollup, 0, len(docs))
	for _, doc := range docs {
		var rollup entities.DailyRollup
		if err := json.Unmarshal(doc.Body, &rollup); err != nil {
			return nil, &domain.StoreError{
				Op:         "decode",
				Collection: RollupsCollection,
				Err:        fmt.Errorf("document %s: %w", doc.Key, err),
			}
		}
		rollups = append(rollups, rollup)
	}

	return rollups, nil
}
