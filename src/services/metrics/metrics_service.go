package metrics

import (
	"context"
	"log/slog"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
	"invitationmetrics/src/helper/clock"
	inframetrics "invitationmetrics/src/infra/metrics"
	"invitationmetrics/src/repositories"
	"invitationmetrics/src/services/eventsource"
)

// RollupNotifier is told about every successful pipeline run.
type RollupNotifier interface {
	NotifyRollupsRefreshed(ctx context.Context, tenantID string, accountID string, dateRange domain.DateRange, rollups []entities.DailyRollup) error
}

type MetricsService struct {
	logger                 *slog.Logger
	generator              *eventsource.Generator
	eventRepository        *repositories.EventRepository
	cachedRollupRepository *repositories.CachedRollupRepository
	clock                  clock.Clock
	pipelineMetrics        *inframetrics.PipelineMetrics
	notifier               RollupNotifier
}

func NewMetricsService(
	logger *slog.Logger,
	generator *eventsource.Generator,
	eventRepository *repositories.EventRepository,
	cachedRollupRepository *repositories.CachedRollupRepository,
	clk clock.Clock,
	pipelineMetrics *inframetrics.PipelineMetrics,
) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}

	if clk == nil {
		clk = clock.SystemClock{}
	}

	return &MetricsService{
		logger:                 logger,
		generator:              generator,
		eventRepository:        eventRepository,
		cachedRollupRepository: cachedRollupRepository,
		clock:                  clk,
		pipelineMetrics:        pipelineMetrics,
	}
}

// WithNotifier registra quem deve ser avisado após cada execução bem sucedida.
func (s *MetricsService) WithNotifier(notifier RollupNotifier) *MetricsService {
	s.notifier = notifier
	return s
}
