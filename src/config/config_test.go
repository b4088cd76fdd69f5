package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"invitationmetrics/src/config"
)

var _ = Describe("Load", func() {
	setEnv := func(name string, value string) {
		previous, existed := os.LookupEnv(name)
		Expect(os.Setenv(name, value)).To(Succeed())
		DeferCleanup(func() {
			if existed {
				os.Setenv(name, previous)
				return
			}
			os.Unsetenv(name)
		})
	}

	BeforeEach(func() {
		setEnv("STORE_DRIVER", "memory")
		setEnv("SERVER_PORT", "8080")
		setEnv("EVENT_SOURCE_LATENCY", "150ms")
	})

	It("should read the memory driver without any backend settings", func() {
		cfg, err := config.Load()

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.StoreDriver).To(Equal(config.StoreDriverMemory))
		Expect(cfg.ServerPort).To(Equal(8080))
		Expect(cfg.EventSourceLatency).To(Equal(150 * time.Millisecond))
	})

	It("should reject an unknown driver", func() {
		setEnv("STORE_DRIVER", "cassandra")

		_, err := config.Load()

		Expect(err).To(MatchError(ContainSubstring("cassandra")))
	})

	It("should require the mongo uri for the mongo driver", func() {
		setEnv("STORE_DRIVER", "mongo")
		setEnv("MONGO_URI", "")

		_, err := config.Load()

		Expect(err).To(MatchError(ContainSubstring("MONGO_URI")))
	})

	It("should read from the primary when no read replica is configured", func() {
		setEnv("STORE_DRIVER", "postgres")
		setEnv("DB_HOST", "primary.db")
		setEnv("DB_WRITE_HOST", "")
		setEnv("DB_READ_HOST", "")
		setEnv("DB_NAME", "metrics")
		setEnv("DB_USER", "metrics")

		cfg, err := config.Load()

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Postgres.WriteHost).To(Equal("primary.db"))
		Expect(cfg.Postgres.ReadHost).To(Equal("primary.db"))
	})

	It("should only publish when brokers and topic are both set", func() {
		setEnv("KAFKA_BROKERS", "localhost:9092")
		setEnv("KAFKA_ROLLUP_EVENTS_TOPIC", "")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.PublishEnabled()).To(BeFalse())

		setEnv("KAFKA_ROLLUP_EVENTS_TOPIC", "invitation-metrics.rollups")

		cfg, err = config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.PublishEnabled()).To(BeTrue())
	})
})
