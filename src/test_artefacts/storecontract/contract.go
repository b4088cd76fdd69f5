// Package storecontract holds the behaviour every DocumentStore backend must
// share. Backend test suites call DescribeDocumentStore with a constructor.
package storecontract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invitationmetrics/src/repositories"
	"invitationmetrics/src/test_artefacts/comparer"
)

// Factory returns a fresh, empty store. Returning nil skips the specs.
type Factory func(ctx context.Context) repositories.DocumentStore

func doc(key string, instant time.Time, body string) repositories.Document {
	return repositories.Document{Key: key, Instant: instant, Body: json.RawMessage(body)}
}

// DescribeDocumentStore registers the shared specs, for use as
// var _ = DescribeDocumentStore(...).
func DescribeDocumentStore(backend string, factory Factory) bool {
	return Describe(fmt.Sprintf("DocumentStore contract (%s)", backend), func() {
		var (
			store      repositories.DocumentStore
			ctx        context.Context
			collection string
			tenantID   string
			day        time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			store = factory(ctx)
			if store == nil {
				Skip(backend + " backend not configured")
			}

			collection = "contract_" + gofakeit.LetterN(10)
			tenantID = "tenant-" + gofakeit.LetterN(8)
			day = time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
		})

		AfterEach(func() {
			if store != nil {
				Expect(store.Close()).To(Succeed())
			}
		})

		query := func(from time.Time, until time.Time) []repositories.Document {
			docs, err := store.QueryRange(ctx, collection, repositories.RangeQuery{
				Filters: map[string]string{"tenantId": tenantID},
				From:    from,
				Until:   until,
			})
			Expect(err).NotTo(HaveOccurred())
			return docs
		}

		Context("UpsertBatch", func() {
			When("the document does not exist", func() {
				It("should store it", func() {
					// ARRANGE
					body := fmt.Sprintf(`{"tenantId":%q,"count":3,"status":"ok"}`, tenantID)

					// ACT
					err := store.UpsertBatch(ctx, collection, []repositories.Document{doc("k1", day, body)})

					// ASSERT
					Expect(err).NotTo(HaveOccurred())
					result := query(day, day.AddDate(0, 0, 1))
					Expect(result).To(HaveLen(1))
					Expect(result[0].Key).To(Equal("k1"))
					Expect(result[0].Instant.Equal(day)).To(BeTrue())
					Expect(string(result[0].Body)).To(MatchJSON(body))
				})
			})

			When("the document exists", func() {
				It("should merge fields and keep the ones missing from the new body", func() {
					// ARRANGE
					first := fmt.Sprintf(`{"tenantId":%q,"count":3,"note":"kept"}`, tenantID)
					second := fmt.Sprintf(`{"tenantId":%q,"count":7}`, tenantID)
					Expect(store.UpsertBatch(ctx, collection, []repositories.Document{doc("k1", day, first)})).To(Succeed())

					// ACT
					err := store.UpsertBatch(ctx, collection, []repositories.Document{doc("k1", day, second)})

					// ASSERT
					Expect(err).NotTo(HaveOccurred())
					result := query(day, day.AddDate(0, 0, 1))
					Expect(result).To(HaveLen(1))
					Expect(string(result[0].Body)).To(MatchJSON(fmt.Sprintf(`{"tenantId":%q,"count":7,"note":"kept"}`, tenantID)))
				})
			})

			When("the same batch is written twice", func() {
				It("should leave the stored state unchanged", func() {
					// ARRANGE
					batch := []repositories.Document{
						doc("k1", day.Add(2*time.Hour), fmt.Sprintf(`{"tenantId":%q,"n":1}`, tenantID)),
						doc("k2", day.Add(5*time.Hour), fmt.Sprintf(`{"tenantId":%q,"n":2}`, tenantID)),
					}
					Expect(store.UpsertBatch(ctx, collection, batch)).To(Succeed())
					before := query(day, day.AddDate(0, 0, 1))

					// ACT
					err := store.UpsertBatch(ctx, collection, batch)

					// ASSERT
					Expect(err).NotTo(HaveOccurred())
					after := query(day, day.AddDate(0, 0, 1))
					Expect(after).To(HaveLen(2))
					Expect(after).To(BeComparableTo(before, comparer.JSONRawMessage(), comparer.TimeWithinTolerance(1)))
				})
			})

			When("the batch is empty", func() {
				It("should succeed without writing", func() {
					Expect(store.UpsertBatch(ctx, collection, nil)).To(Succeed())
					Expect(query(day, day.AddDate(0, 0, 1))).To(BeEmpty())
				})
			})
		})

		Context("QueryRange", func() {
			BeforeEach(func() {
				nextMidnight := day.AddDate(0, 0, 1)
				batch := []repositories.Document{
					doc("at-lower", day, fmt.Sprintf(`{"tenantId":%q}`, tenantID)),
					doc("last-minute", nextMidnight.Add(-time.Minute), fmt.Sprintf(`{"tenantId":%q}`, tenantID)),
					doc("at-upper", nextMidnight, fmt.Sprintf(`{"tenantId":%q}`, tenantID)),
					doc("before", day.Add(-time.Minute), fmt.Sprintf(`{"tenantId":%q}`, tenantID)),
					doc("other-tenant", day.Add(time.Hour), `{"tenantId":"someone-else"}`),
				}
				Expect(store.UpsertBatch(ctx, collection, batch)).To(Succeed())
			})

			It("should include the lower bound and exclude the upper bound", func() {
				result := query(day, day.AddDate(0, 0, 1))

				keys := make([]string, 0, len(result))
				for _, d := range result {
					keys = append(keys, d.Key)
				}
				Expect(keys).To(Equal([]string{"at-lower", "last-minute"}))
			})

			It("should only return documents matching every filter", func() {
				docs, err := store.QueryRange(ctx, collection, repositories.RangeQuery{
					Filters: map[string]string{"tenantId": "someone-else"},
					From:    day,
					Until:   day.AddDate(0, 0, 1),
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].Key).To(Equal("other-tenant"))
			})

			It("should return nothing for an unknown collection", func() {
				docs, err := store.QueryRange(ctx, collection+"_missing", repositories.RangeQuery{
					From:  day,
					Until: day.AddDate(0, 0, 1),
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(BeEmpty())
			})
		})

		Context("Ping", func() {
			It("should succeed on an open store", func() {
				Expect(store.Ping(ctx)).To(Succeed())
			})
		})
	})
}
