package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/infra/kafka"
)

// RefreshRequestMessage representa o schema da mensagem Kafka que pede o recálculo de um intervalo.
type RefreshRequestMessage struct {
	TenantID  string `json:"tenant_id"`
	AccountID string `json:"account_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// SeriesRunner runs the aggregation pipeline. Satisfied by *metrics.MetricsService.
type SeriesRunner interface {
	GetInvitationSeries(ctx context.Context, request domain.InvitationSeriesRequest) ([]domain.MetricDataPoint, error)
}

type RefreshRequestConsumer struct {
	logger *slog.Logger
	runner SeriesRunner
}

func NewRefreshRequestConsumer(logger *slog.Logger, runner SeriesRunner) *RefreshRequestConsumer {
	if logger == nil {
		logger = slog.Default()
	}

	return &RefreshRequestConsumer{
		logger: logger,
		runner: runner,
	}
}

func (c *RefreshRequestConsumer) Start(ctx context.Context, kafkaClient *kafka.KafkaClient, topic string) error {
	c.logger.Info("Starting refresh request consumer", "topic", topic)

	handler := func(messages []kafka.Message) error {
		return c.HandleMessages(ctx, messages)
	}

	return kafkaClient.Consume(ctx, handler, topic)
}

// HandleMessages runs the pipeline once per distinct request of the batch.
// Malformed or invalid requests are logged and dropped since redelivery
// cannot fix them. Any other failure fails the whole batch, which the kafka
// client retries before reading further; requests already refreshed in it
// just run again.
func (c *RefreshRequestConsumer) HandleMessages(ctx context.Context, messages []kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}

	c.logger.Info("Processing refresh requests batch", "count", len(messages))

	// Requests idênticos no mesmo lote produzem o mesmo resultado; roda só uma vez.
	seen := make(map[RefreshRequestMessage]bool, len(messages))
	requests := make([]RefreshRequestMessage, 0, len(messages))
	unparsed := 0

	for _, msg := range messages {
		var refreshMsg RefreshRequestMessage
		if err := json.Unmarshal(msg.Value, &refreshMsg); err != nil {
			c.logger.Error("Failed to unmarshal refresh request, skipping",
				"error", err,
				"key", msg.Key,
				"value", string(msg.Value))
			unparsed++
			continue
		}

		if seen[refreshMsg] {
			continue
		}
		seen[refreshMsg] = true
		requests = append(requests, refreshMsg)
	}

	processed, skipped := 0, unparsed
	for _, refreshMsg := range requests {
		request := domain.InvitationSeriesRequest{
			TenantID:  refreshMsg.TenantID,
			AccountID: refreshMsg.AccountID,
			From:      refreshMsg.From,
			To:        refreshMsg.To,
		}

		_, err := c.runner.GetInvitationSeries(ctx, request)
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.logger.Warn("Invalid refresh request, skipping",
				"error", err,
				"tenant_id", refreshMsg.TenantID,
				"account_id", refreshMsg.AccountID,
				"from", refreshMsg.From,
				"to", refreshMsg.To)
			skipped++
			continue
		}

		if err != nil {
			c.logger.Error("Failed to refresh invitation rollups",
				"error", err,
				"tenant_id", refreshMsg.TenantID,
				"account_id", refreshMsg.AccountID)
			return fmt.Errorf("failed to refresh %s/%s %s..%s: %w",
				refreshMsg.TenantID, refreshMsg.AccountID, refreshMsg.From, refreshMsg.To, err)
		}

		processed++
	}

	c.logger.Info("Successfully processed refresh requests batch",
		"count", len(messages),
		"processed", processed,
		"skipped", skipped,
		"duplicatesRemoved", len(messages)-len(requests)-unparsed)

	return nil
}
