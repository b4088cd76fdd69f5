package repositories_test

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invitationmetrics/src/domain/entities"
	"invitationmetrics/src/helper/env"
	"invitationmetrics/src/infra/memstore"
	"invitationmetrics/src/infra/redis"
	"invitationmetrics/src/repositories"
	"invitationmetrics/src/test_artefacts/comparer"
	"invitationmetrics/src/test_artefacts/stubs"
)

var _ = Describe("CachedRollupRepository", func() {
	var (
		ctx              context.Context
		rollupRepository *repositories.RollupRepository
		tenantID         string
	)

	BeforeEach(func() {
		ctx = context.Background()
		rollupRepository = repositories.NewRollupRepository(memstore.New())
		tenantID = "tenant-" + gofakeit.LetterN(8)
	})

	When("no redis client is configured", func() {
		It("should read and write straight through", func() {
			cached := repositories.NewCachedRollupRepository(nil, rollupRepository, nil)
			rollup := stubs.NewDailyRollupStub().WithAccount(tenantID, "a1").WithDate("2025-09-01").WithCount(4).Get()

			Expect(cached.UpsertRollups(ctx, []entities.DailyRollup{rollup})).To(Succeed())
			rollups, err := cached.FindRollups(ctx, tenantID, "a1", mustRange("2025-09-01", "2025-09-01"))

			Expect(err).NotTo(HaveOccurred())
			Expect(rollups).To(BeComparableTo([]entities.DailyRollup{rollup}, comparer.SameInstant()))
		})
	})

	When("redis is available", func() {
		var (
			redisClient *redis.RedisClient
			cached      *repositories.CachedRollupRepository
		)

		BeforeEach(func() {
			addrs := env.GetString("TEST_REDIS_ADDRS")
			if addrs == "" {
				Skip("TEST_REDIS_ADDRS not set")
			}

			redisClient = redis.NewRedisClient(addrs, 5, time.Minute)
			cached = repositories.NewCachedRollupRepository(nil, rollupRepository, redisClient)
			DeferCleanup(redisClient.Close)
		})

		It("should serve cached reads until the account's rollups are rewritten", func() {
			// ARRANGE
			dateRange := mustRange("2025-09-01", "2025-09-01")
			original := stubs.NewDailyRollupStub().WithAccount(tenantID, "a1").WithDate("2025-09-01").WithCount(4).Get()
			Expect(cached.UpsertRollups(ctx, []entities.DailyRollup{original})).To(Succeed())

			_, err := cached.FindRollups(ctx, tenantID, "a1", dateRange)
			Expect(err).NotTo(HaveOccurred())

			// a escrita do cache é assíncrona
			Eventually(func() int {
				members, err := redisClient.GetMultipleSetMembers(ctx, []string{"registry:rollups:" + tenantID + ":a1"})
				Expect(err).NotTo(HaveOccurred())
				return len(members["registry:rollups:"+tenantID+":a1"])
			}).Should(Equal(1))

			// escreve por baixo do cache
			bypassed := stubs.NewDailyRollupStub().WithAccount(tenantID, "a1").WithDate("2025-09-01").WithCount(9).Get()
			Expect(rollupRepository.UpsertRollups(ctx, []entities.DailyRollup{bypassed})).To(Succeed())

			stale, err := cached.FindRollups(ctx, tenantID, "a1", dateRange)
			Expect(err).NotTo(HaveOccurred())
			Expect(stale[0].Count).To(Equal(4))

			// ACT
			updated := stubs.NewDailyRollupStub().WithAccount(tenantID, "a1").WithDate("2025-09-01").WithCount(6).Get()
			Expect(cached.UpsertRollups(ctx, []entities.DailyRollup{updated})).To(Succeed())

			// ASSERT
			fresh, err := cached.FindRollups(ctx, tenantID, "a1", dateRange)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh[0].Count).To(Equal(6))
		})

		It("should not serve a cache entry set late by a read that started before a rewrite", func() {
			// ARRANGE
			dateRange := mustRange("2025-09-01", "2025-09-01")
			original := stubs.NewDailyRollupStub().WithAccount(tenantID, "a1").WithDate("2025-09-01").WithCount(4).Get()
			Expect(cached.UpsertRollups(ctx, []entities.DailyRollup{original})).To(Succeed())

			// a leitura concorrente vê a versão antiga e os dados antigos
			versionSeenByReader, err := redisClient.GetCounter(ctx, repositories.RollupVersionKey(tenantID, "a1"))
			Expect(err).NotTo(HaveOccurred())

			updated := stubs.NewDailyRollupStub().WithAccount(tenantID, "a1").WithDate("2025-09-01").WithCount(6).Get()
			Expect(cached.UpsertRollups(ctx, []entities.DailyRollup{updated})).To(Succeed())

			// ACT
			lateKey := repositories.GenerateRollupCacheKey(tenantID, "a1", dateRange, versionSeenByReader)
			cached.SetInCache(ctx, lateKey, tenantID, "a1", []entities.DailyRollup{original})

			// ASSERT
			result, err := cached.FindRollups(ctx, tenantID, "a1", dateRange)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeComparableTo([]entities.DailyRollup{updated}, comparer.SameInstant()))
		})
	})
})
