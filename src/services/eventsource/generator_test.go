package eventsource_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/helper/calendar"
	"invitationmetrics/src/services/eventsource"
)

func mustRange(from string, to string) domain.DateRange {
	r, err := domain.NewDateRange(from, to)
	Expect(err).NotTo(HaveOccurred())
	return r
}

var _ = Describe("Hash", func() {
	DescribeTable("fixed reference values",
		func(input string, expected int64) {
			Expect(eventsource.Hash(input)).To(Equal(expected))
		},
		Entry("empty string", "", int64(0)),
		Entry("ascii word", "hello", int64(837524112)),
		Entry("day seed", "t1|a1|2025-09-01", int64(1005924568)),
		Entry("next day seed", "t1|a1|2025-09-02", int64(732844754)),
	)

	It("should never be negative", func() {
		for i := 0; i < 2000; i++ {
			Expect(eventsource.Hash(gofakeit.LetterN(uint(1 + i%40)))).To(BeNumerically(">=", 0))
		}
	})
})

var _ = Describe("Generator", func() {
	var (
		generator *eventsource.Generator
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		generator = eventsource.NewGenerator(nil, 0)
	})

	Context("Determinism", func() {
		It("should produce identical events for identical inputs", func() {
			// ARRANGE
			r := mustRange("2025-08-01", "2025-09-30")

			// ACT
			first, err := generator.Generate(ctx, "t1", "a1", r)
			Expect(err).NotTo(HaveOccurred())
			second, err := eventsource.NewGenerator(nil, 0).Generate(ctx, "t1", "a1", r)
			Expect(err).NotTo(HaveOccurred())

			// ASSERT
			Expect(second).To(Equal(first))
		})

		It("should derive the reference daily counts", func() {
			r := mustRange("2025-09-01", "2025-09-03")

			Expect(eventsource.CountForDay("t1", "a1", r.From)).To(Equal(4))
			Expect(eventsource.CountForDay("t1", "a1", calendar.OffsetDays(r.From, 1))).To(Equal(2))
			Expect(eventsource.CountForDay("t1", "a1", r.To)).To(Equal(5))
		})

		It("should produce a single day's events independently of the requested range", func() {
			day, _ := calendar.ParseDay("2025-09-02")

			wide, err := generator.Generate(ctx, "t1", "a1", mustRange("2025-08-20", "2025-09-10"))
			Expect(err).NotTo(HaveOccurred())

			var fromWide []string
			for _, event := range wide {
				if calendar.FormatDay(event.ReceivedAt) == "2025-09-02" {
					fromWide = append(fromWide, event.ExternalID)
				}
			}

			var single []string
			for _, event := range eventsource.EventsForDay("t1", "a1", day) {
				single = append(single, event.ExternalID)
			}

			Expect(fromWide).To(ConsistOf(single))
		})
	})

	Context("Event shape", func() {
		It("should keep every event inside its day with bounded counts", func() {
			r := mustRange("2024-12-01", "2025-03-31")

			for _, day := range r.Days() {
				events := eventsource.EventsForDay("tenant-x", "account-y", day)

				Expect(len(events)).To(BeNumerically("<=", eventsource.MaxEventsPerDay))
				for _, event := range events {
					Expect(calendar.StartOfDay(event.ReceivedAt)).To(Equal(day))
					Expect(event.ReceivedAt.Location()).To(Equal(time.UTC))
					Expect(event.ReceivedAt.Second()).To(BeZero())
					Expect(event.TenantID).To(Equal("tenant-x"))
					Expect(event.AccountID).To(Equal("account-y"))
					Expect(event.SenderID).To(MatchRegexp(`^sender_\d{4}$`))
				}
			}
		})

		It("should generate unique external ids across tenants, accounts and days", func() {
			r := mustRange("2025-01-01", "2025-02-28")
			seen := make(map[string]bool)

			for t := 0; t < 5; t++ {
				for a := 0; a < 5; a++ {
					events, err := generator.Generate(ctx, fmt.Sprintf("t%d", t), fmt.Sprintf("a%d", a), r)
					Expect(err).NotTo(HaveOccurred())

					for _, event := range events {
						Expect(seen).NotTo(HaveKey(event.ExternalID))
						seen[event.ExternalID] = true
					}
				}
			}
		})

		It("should return events sorted by received instant", func() {
			events, err := generator.Generate(ctx, "t1", "a1", mustRange("2025-06-01", "2025-06-30"))
			Expect(err).NotTo(HaveOccurred())

			for i := 1; i < len(events); i++ {
				Expect(events[i].ReceivedAt.Before(events[i-1].ReceivedAt)).To(BeFalse())
			}
		})

		It("should not produce the same count pattern for every day", func() {
			r := mustRange("2025-09-01", "2025-09-30")
			distinct := make(map[int]bool)

			for _, day := range r.Days() {
				distinct[eventsource.CountForDay("t1", "a1", day)] = true
			}

			Expect(len(distinct)).To(BeNumerically(">", 1))
		})
	})

	Context("Simulated latency", func() {
		When("the context is cancelled while waiting", func() {
			It("should return a generation error", func() {
				// ARRANGE
				slow := eventsource.NewGenerator(nil, time.Minute)
				cancelled, cancel := context.WithCancel(ctx)
				cancel()

				// ACT
				events, err := slow.Generate(cancelled, "t1", "a1", mustRange("2025-09-01", "2025-09-03"))

				// ASSERT
				Expect(events).To(BeNil())
				Expect(err).To(MatchError(domain.ErrGenerationFailure))
				Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			})
		})

		It("should wait and then return the same events", func() {
			slow := eventsource.NewGenerator(nil, 5*time.Millisecond)
			r := mustRange("2025-09-01", "2025-09-03")

			delayed, err := slow.Generate(ctx, "t1", "a1", r)
			Expect(err).NotTo(HaveOccurred())
			immediate, _ := generator.Generate(ctx, "t1", "a1", r)

			Expect(delayed).To(Equal(immediate))
			Expect(delayed).To(HaveLen(4 + 2 + 5))
		})
	})
})
