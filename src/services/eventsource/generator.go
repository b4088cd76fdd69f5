// Package eventsource produces reproducible synthetic invitation events. It
// stands in for the upstream invitations API: identical inputs always give
// byte-identical events.
package eventsource

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
	"invitationmetrics/src/helper/calendar"
)

// MaxEventsPerDay bounds the per-day count, n(d) is in [0, MaxEventsPerDay].
const MaxEventsPerDay = 5

type Generator struct {
	logger  *slog.Logger
	latency time.Duration
}

// NewGenerator builds a generator. A positive latency is waited before each
// Generate call returns, simulating the upstream round trip.
func NewGenerator(logger *slog.Logger, latency time.Duration) *Generator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{logger: logger, latency: latency}
}

// Generate returns the events of every day in r, ordered by ReceivedAt and
// then ExternalID.
func (g *Generator) Generate(ctx context.Context, tenantID string, accountID string, r domain.DateRange) ([]entities.InvitationEvent, error) {
	if err := g.wait(ctx); err != nil {
		return nil, &domain.GenerationError{Err: err}
	}

	events := make([]entities.InvitationEvent, 0)
	for _, day := range r.Days() {
		events = append(events, EventsForDay(tenantID, accountID, day)...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].ReceivedAt.Equal(events[j].ReceivedAt) {
			return events[i].ExternalID < events[j].ExternalID
		}
		return events[i].ReceivedAt.Before(events[j].ReceivedAt)
	})

	g.logger.Debug("Generated synthetic invitation events",
		"tenant_id", tenantID,
		"account_id", accountID,
		"range", r.String(),
		"count", len(events))

	return events, nil
}

func (g *Generator) wait(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(g.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CountForDay is n(d) for the given tenant, account and day.
func CountForDay(tenantID string, accountID string, day time.Time) int {
	seed := joinSeed(tenantID, accountID, calendar.FormatDay(day))
	return int(Hash(seed) % (MaxEventsPerDay + 1))
}

// EventsForDay derives the events of a single day, in index order.
func EventsForDay(tenantID string, accountID string, day time.Time) []entities.InvitationEvent {
	dayStart := calendar.StartOfDay(day)
	dayKey := calendar.FormatDay(dayStart)
	n := CountForDay(tenantID, accountID, dayStart)

	events := make([]entities.InvitationEvent, 0, n)
	for i := 0; i < n; i++ {
		seed := joinSeed(tenantID, accountID, dayKey, fmt.Sprint(i))

		hour := Hash(seed+"|hour") % 24
		minute := Hash(seed+"|minute") % 60

		events = append(events, entities.InvitationEvent{
			TenantID:   tenantID,
			AccountID:  accountID,
			ExternalID: externalID(seed, dayStart, i),
			SenderID:   fmt.Sprintf("sender_%04d", Hash(seed+"|sender")%10000),
			ReceivedAt: dayStart.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute),
		})
	}

	return events
}

// externalID combines two salted hashes of the seed with the day and index,
// so ids of different days or indexes can never collide.
func externalID(seed string, day time.Time, index int) string {
	return fmt.Sprintf("inv_%08x%08x_%s_%d",
		Hash(seed),
		Hash(seed+"|id"),
		day.Format("20060102"),
		index)
}

func joinSeed(parts ...string) string {
	return strings.Join(parts, "|")
}
