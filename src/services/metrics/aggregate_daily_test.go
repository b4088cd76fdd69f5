package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
	"invitationmetrics/src/services/metrics"
	"invitationmetrics/src/test_artefacts/stubs"
)

func mustRange(from string, to string) domain.DateRange {
	r, err := domain.NewDateRange(from, to)
	Expect(err).NotTo(HaveOccurred())
	return r
}

func eventAt(receivedAt time.Time) entities.InvitationEvent {
	return stubs.NewInvitationEventStub().WithAccount("t1", "a1").WithReceivedAt(receivedAt).Get()
}

var _ = Describe("AggregateDaily", func() {
	It("should return one zero-filled entry per day when there are no events", func() {
		result := metrics.AggregateDaily(mustRange("2025-09-01", "2025-09-03"), nil)

		Expect(result).To(Equal([]entities.DailyCount{
			{Date: "2025-09-01", Count: 0},
			{Date: "2025-09-02", Count: 0},
			{Date: "2025-09-03", Count: 0},
		}))
	})

	It("should group events by their UTC day in ascending order", func() {
		// ARRANGE
		saoPaulo := time.FixedZone("BRT", -3*60*60)
		events := []entities.InvitationEvent{
			eventAt(time.Date(2025, 9, 3, 23, 59, 59, 0, time.UTC)),
			eventAt(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)),
			eventAt(time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)),
			// 22:30 em São Paulo já é dia 3 em UTC
			eventAt(time.Date(2025, 9, 2, 22, 30, 0, 0, saoPaulo)),
		}

		// ACT
		result := metrics.AggregateDaily(mustRange("2025-09-01", "2025-09-03"), events)

		// ASSERT
		Expect(result).To(Equal([]entities.DailyCount{
			{Date: "2025-09-01", Count: 2},
			{Date: "2025-09-02", Count: 0},
			{Date: "2025-09-03", Count: 2},
		}))
	})

	It("should ignore events outside the range", func() {
		events := []entities.InvitationEvent{
			eventAt(time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC)),
			eventAt(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)),
			eventAt(time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)),
		}

		result := metrics.AggregateDaily(mustRange("2025-09-01", "2025-09-01"), events)

		Expect(result).To(Equal([]entities.DailyCount{{Date: "2025-09-01", Count: 1}}))
	})
})
