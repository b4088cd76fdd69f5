package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
	inframetrics "invitationmetrics/src/infra/metrics"
)

// GetInvitationSeries runs the whole pipeline for one request: generate the
// raw events, store them, aggregate what is stored, overwrite the rollups and
// attach the previous period total to the first point. Any failure aborts
// the remaining steps.
func (s *MetricsService) GetInvitationSeries(ctx context.Context, request domain.InvitationSeriesRequest) ([]domain.MetricDataPoint, error) {
	startedAt := time.Now()

	series, err := s.runPipeline(ctx, request)
	s.pipelineMetrics.ObserveRun(outcomeOf(err), time.Since(startedAt))

	return series, err
}

func (s *MetricsService) runPipeline(ctx context.Context, request domain.InvitationSeriesRequest) ([]domain.MetricDataPoint, error) {
	dateRange, err := request.Validate()
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("tenantId", request.TenantID, "accountId", request.AccountID, "range", dateRange.String())

	events, err := s.generator.Generate(ctx, request.TenantID, request.AccountID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("MetricsService.GetInvitationSeries - failed to generate events: %w", err)
	}

	if err := s.eventRepository.UpsertEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("MetricsService.GetInvitationSeries - failed to upsert events: %w", err)
	}
	s.pipelineMetrics.AddEventsIngested(len(events))

	// Agrega sempre o que está persistido, nunca o resultado do gerador.
	stored, err := s.eventRepository.FindEvents(ctx, request.TenantID, request.AccountID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("MetricsService.GetInvitationSeries - failed to query events: %w", err)
	}

	dailyCounts := AggregateDaily(dateRange, stored)

	rollups := s.buildRollups(request.TenantID, request.AccountID, dailyCounts)
	if err := s.cachedRollupRepository.UpsertRollups(ctx, rollups); err != nil {
		return nil, fmt.Errorf("MetricsService.GetInvitationSeries - failed to upsert rollups: %w", err)
	}
	s.pipelineMetrics.AddRollupsWritten(len(rollups))

	previousTotal, err := s.PreviousPeriodTotal(ctx, request.TenantID, request.AccountID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("MetricsService.GetInvitationSeries - %w", err)
	}

	series := assembleSeries(rollups, previousTotal)

	if s.notifier != nil {
		if notifyErr := s.notifier.NotifyRollupsRefreshed(ctx, request.TenantID, request.AccountID, dateRange, rollups); notifyErr != nil {
			logger.Warn("Failed to notify rollup refresh", "error", notifyErr)
		}
	}

	logger.Info("Invitation series computed", "events", len(stored), "previousPeriodTotal", previousTotal)

	return series, nil
}

// GetStoredRollups lê os rollups já persistidos, sem executar o pipeline.
// Dias nunca calculados ficam de fora.
func (s *MetricsService) GetStoredRollups(ctx context.Context, request domain.InvitationSeriesRequest) ([]entities.DailyRollup, error) {
	dateRange, err := request.Validate()
	if err != nil {
		return nil, err
	}

	rollups, err := s.cachedRollupRepository.FindRollups(ctx, request.TenantID, request.AccountID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("MetricsService.GetStoredRollups - failed to query rollups: %w", err)
	}

	return rollups, nil
}

func (s *MetricsService) buildRollups(tenantID string, accountID string, dailyCounts []entities.DailyCount) []entities.DailyRollup {
	updatedAt := s.clock.Now().UTC()

	rollups := make([]entities.DailyRollup, 0, len(dailyCounts))
	for _, daily := range dailyCounts {
		rollups = append(rollups, entities.DailyRollup{
			TenantID:  tenantID,
			AccountID: accountID,
			Date:      daily.Date,
			Count:     daily.Count,
			Status:    entities.RollupStatusOK,
			UpdatedAt: updatedAt,
		})
	}

	return rollups
}

func assembleSeries(rollups []entities.DailyRollup, previousTotal int) []domain.MetricDataPoint {
	series := make([]domain.MetricDataPoint, 0, len(rollups))
	for i, rollup := range rollups {
		point := domain.MetricDataPoint{
			Date:   rollup.Date,
			Value:  rollup.Count,
			Status: rollup.Status,
		}

		if i == 0 {
			total := previousTotal
			point.PreviousPeriodComparison = &total
		}

		series = append(series, point)
	}

	return series
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return inframetrics.OutcomeSuccess
	case errors.Is(err, domain.ErrInvalidRequest):
		return inframetrics.OutcomeInvalidRequest
	case errors.Is(err, domain.ErrStoreFailure):
		return inframetrics.OutcomeStoreError
	case errors.Is(err, domain.ErrGenerationFailure):
		return inframetrics.OutcomeGenerationError
	default:
		return inframetrics.OutcomeUnknownError
	}
}
