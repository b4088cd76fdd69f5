package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
	"invitationmetrics/src/helper/calendar"
	"invitationmetrics/src/helper/clock"
	"invitationmetrics/src/infra/kafka"
)

const RollupsRefreshedEventType = "invitation.rollups.refreshed"

// MessagePublisher is satisfied by *kafka.KafkaClient.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, messages []kafka.Message) error
}

// RollupsRefreshedEvent é o payload publicado a cada execução do pipeline.
type RollupsRefreshedEvent struct {
	EventID    string                `json:"event_id"`
	EventType  string                `json:"event_type"`
	TenantID   string                `json:"tenant_id"`
	AccountID  string                `json:"account_id"`
	From       string                `json:"from"`
	To         string                `json:"to"`
	Rollups    []entities.DailyCount `json:"rollups"`
	Total      int                   `json:"total"`
	OccurredAt time.Time             `json:"occurred_at"`
}

type RollupEventPublisher struct {
	logger    *slog.Logger
	publisher MessagePublisher
	topic     string
	clock     clock.Clock
}

func NewRollupEventPublisher(
	logger *slog.Logger,
	publisher MessagePublisher,
	topic string,
	clk clock.Clock,
) *RollupEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	if clk == nil {
		clk = clock.SystemClock{}
	}

	return &RollupEventPublisher{
		logger:    logger,
		publisher: publisher,
		topic:     topic,
		clock:     clk,
	}
}

// NotifyRollupsRefreshed publishes one event keyed by tenant:account, so all
// refreshes of an account land on the same partition in order.
func (p *RollupEventPublisher) NotifyRollupsRefreshed(ctx context.Context, tenantID string, accountID string, dateRange domain.DateRange, rollups []entities.DailyRollup) error {
	event := RollupsRefreshedEvent{
		EventID:    uuid.NewString(),
		EventType:  RollupsRefreshedEventType,
		TenantID:   tenantID,
		AccountID:  accountID,
		From:       calendar.FormatDay(dateRange.From),
		To:         calendar.FormatDay(dateRange.To),
		Rollups:    make([]entities.DailyCount, 0, len(rollups)),
		OccurredAt: p.clock.Now().UTC(),
	}

	for _, rollup := range rollups {
		event.Rollups = append(event.Rollups, entities.DailyCount{Date: rollup.Date, Count: rollup.Count})
		event.Total += rollup.Count
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal rollups refreshed event: %w", err)
	}

	message := kafka.Message{
		Key:     fmt.Sprintf("%s:%s", tenantID, accountID),
		Value:   eventBytes,
		Headers: p.createEventHeaders(event),
	}

	if err := p.publisher.Publish(ctx, p.topic, []kafka.Message{message}); err != nil {
		return fmt.Errorf("failed to publish rollups refreshed event to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("Published rollups refreshed event",
		"event_id", event.EventID,
		"topic", p.topic,
		"key", message.Key)

	return nil
}

func (p *RollupEventPublisher) createEventHeaders(event RollupsRefreshedEvent) map[string]string {
	return map[string]string{
		"event_id":       event.EventID,
		"event_type":     event.EventType,
		"source_service": "invitation-metrics",
		"schema_version": "v1",
		"tenant_id":      event.TenantID,
	}
}
