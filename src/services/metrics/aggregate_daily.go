package metrics

import (
	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
	"invitationmetrics/src/helper/calendar"
)

// AggregateDaily counts events per UTC day of r. Every day of the range is
// present, in ascending order, with zero when it has no events. Events
// outside r are ignored.
func AggregateDaily(r domain.DateRange, events []entities.InvitationEvent) []entities.DailyCount {
	days := r.Days()

	counts := make(map[string]int, len(days))
	for _, event := range events {
		counts[calendar.FormatDay(event.ReceivedAt.UTC())]++
	}

	series := make([]entities.DailyCount, 0, len(days))
	for _, day := range days {
		date := calendar.FormatDay(day)
		series = append(series, entities.DailyCount{Date: date, Count: counts[date]})
	}

	return series
}
