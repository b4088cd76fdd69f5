package metrics

import (
	"context"
	"fmt"

	"invitationmetrics/src/domain"
)

// PreviousPeriodTotal returns how many stored events the account received in
// the 7 days immediately before r.From. Only what is already stored counts;
// the window is never generated here.
func (s *MetricsService) PreviousPeriodTotal(ctx context.Context, tenantID string, accountID string, r domain.DateRange) (int, error) {
	window := r.ComparisonWindow()

	events, err := s.eventRepository.FindEvents(ctx, tenantID, accountID, window)
	if err != nil {
		return 0, fmt.Errorf("MetricsService.PreviousPeriodTotal - failed to query window %s: %w", window, err)
	}

	return len(events), nil
}
