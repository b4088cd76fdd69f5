package domain_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invitationmetrics/src/domain"
)

var _ = Describe("DateRange", func() {
	Context("NewDateRange", func() {
		When("from is after to", func() {
			It("should return a validation error", func() {
				// ACT
				_, err := domain.NewDateRange("2025-09-10", "2025-09-01")

				// ASSERT
				Expect(err).To(MatchError(domain.ErrInvalidRequest))

				var validationErr *domain.ValidationError
				Expect(errors.As(err, &validationErr)).To(BeTrue())
				Expect(validationErr.Field).To(Equal("from"))
			})
		})

		When("to is not a calendar day", func() {
			It("should point at the to field", func() {
				_, err := domain.NewDateRange("2025-09-01", "2025-09-31")

				var validationErr *domain.ValidationError
				Expect(errors.As(err, &validationErr)).To(BeTrue())
				Expect(validationErr.Field).To(Equal("to"))
			})
		})

		When("the range spans more than the maximum number of days", func() {
			It("should reject it on the to field", func() {
				// ACT
				_, err := domain.NewDateRange("1800-01-01", "2199-12-31")

				// ASSERT
				Expect(err).To(MatchError(domain.ErrInvalidRequest))

				var validationErr *domain.ValidationError
				Expect(errors.As(err, &validationErr)).To(BeTrue())
				Expect(validationErr.Field).To(Equal("to"))
			})
		})

		When("the range spans exactly the maximum number of days", func() {
			It("should accept it", func() {
				// 2024 é bissexto: 366 dias
				result, err := domain.NewDateRange("2024-01-01", "2024-12-31")

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Days()).To(HaveLen(domain.MaxRangeDays))

				_, err = domain.NewDateRange("2024-01-01", "2025-01-01")
				Expect(err).To(MatchError(domain.ErrInvalidRequest))
			})
		})

		When("from equals to", func() {
			It("should accept the single day range", func() {
				result, err := domain.NewDateRange("2025-09-01", "2025-09-01")

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Days()).To(HaveLen(1))
			})
		})
	})

	Context("QueryBounds", func() {
		It("should end at the midnight after the last day", func() {
			r, err := domain.NewDateRange("2025-09-01", "2025-09-03")
			Expect(err).NotTo(HaveOccurred())

			lower, upper := r.QueryBounds()

			Expect(lower).To(Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
			Expect(upper).To(Equal(time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)))
		})
	})

	Context("ComparisonWindow", func() {
		It("should cover the 7 days before from without overlapping the range", func() {
			r, err := domain.NewDateRange("2025-09-08", "2025-09-20")
			Expect(err).NotTo(HaveOccurred())

			window := r.ComparisonWindow()

			Expect(window.String()).To(Equal("2025-09-01..2025-09-07"))
			Expect(window.Days()).To(HaveLen(domain.ComparisonWindowDays))
			Expect(window.To.Before(r.From)).To(BeTrue())
		})

		It("should not depend on the primary range length", func() {
			short, _ := domain.NewDateRange("2025-03-02", "2025-03-02")
			long, _ := domain.NewDateRange("2025-03-02", "2025-05-30")

			Expect(short.ComparisonWindow()).To(Equal(long.ComparisonWindow()))
			Expect(short.ComparisonWindow().String()).To(Equal("2025-02-23..2025-03-01"))
		})
	})
})

var _ = Describe("InvitationSeriesRequest", func() {
	DescribeTable("rejecting incomplete requests",
		func(request domain.InvitationSeriesRequest, field string) {
			_, err := request.Validate()

			var validationErr *domain.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
			Expect(validationErr.Field).To(Equal(field))
		},
		Entry("missing tenant", domain.InvitationSeriesRequest{AccountID: "a1", From: "2025-09-01", To: "2025-09-03"}, "tenantId"),
		Entry("blank account", domain.InvitationSeriesRequest{TenantID: "t1", AccountID: "  ", From: "2025-09-01", To: "2025-09-03"}, "accountId"),
		Entry("missing from", domain.InvitationSeriesRequest{TenantID: "t1", AccountID: "a1", To: "2025-09-03"}, "from"),
		Entry("missing to", domain.InvitationSeriesRequest{TenantID: "t1", AccountID: "a1", From: "2025-09-01"}, "to"),
		Entry("tenant with the seed separator", domain.InvitationSeriesRequest{TenantID: "x|y", AccountID: "z", From: "2025-09-01", To: "2025-09-03"}, "tenantId"),
		Entry("account with the seed separator", domain.InvitationSeriesRequest{TenantID: "x", AccountID: "y|z", From: "2025-09-01", To: "2025-09-03"}, "accountId"),
		Entry("tenant with the key separator", domain.InvitationSeriesRequest{TenantID: "a:b", AccountID: "c", From: "2025-09-01", To: "2025-09-03"}, "tenantId"),
		Entry("account with the key separator", domain.InvitationSeriesRequest{TenantID: "a", AccountID: "b:c", From: "2025-09-01", To: "2025-09-03"}, "accountId"),
		Entry("range longer than allowed", domain.InvitationSeriesRequest{TenantID: "t1", AccountID: "a1", From: "0001-01-01", To: "9999-12-31"}, "to"),
		Entry("malformed from", domain.InvitationSeriesRequest{TenantID: "t1", AccountID: "a1", From: "2025/09/01", To: "2025-09-03"}, "from"),
	)
})
