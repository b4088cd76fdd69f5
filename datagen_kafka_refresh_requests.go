//go:build datagen_refresh
// +build datagen_refresh

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"

	"invitationmetrics/src/adapters/kafka/consumers"
	"invitationmetrics/src/domain"
	"invitationmetrics/src/helper/calendar"
	"invitationmetrics/src/infra/kafka"
)

type account struct {
	tenantID  string
	accountID string
}

// generateAccounts cria o pool de contas; poucas contas por tenant, como em produção.
func generateAccounts(tenants int, accountsPerTenant int) []account {
	accounts := make([]account, 0, tenants*accountsPerTenant)
	for t := 0; t < tenants; t++ {
		tenantID := fmt.Sprintf("tenant_%s_%d", faker.Username(), t)
		for a := 0; a < accountsPerTenant; a++ {
			accounts = append(accounts, account{
				tenantID:  tenantID,
				accountID: fmt.Sprintf("acc_%s", faker.UUIDDigit()[:12]),
			})
		}
	}
	return accounts
}

// generateRequest picks a random window of up to maxDays ending at most
// daysBack days before today. With probability invalidRatio the bounds are
// swapped so the consumer's skip path gets exercised too.
func generateRequest(accounts []account, daysBack int, maxDays int, invalidRatio float64) consumers.RefreshRequestMessage {
	acc := accounts[rand.Intn(len(accounts))]

	today := calendar.StartOfDay(time.Now().UTC())
	to := calendar.OffsetDays(today, -rand.Intn(daysBack+1))
	from := calendar.OffsetDays(to, -rand.Intn(maxDays))

	if rand.Float64() < invalidRatio && from.Before(to) {
		from, to = to, from
	}

	return consumers.RefreshRequestMessage{
		TenantID:  acc.tenantID,
		AccountID: acc.accountID,
		From:      calendar.FormatDay(from),
		To:        calendar.FormatDay(to),
	}
}

func generateBatch(batchSize int, accounts []account, daysBack int, maxDays int, invalidRatio float64) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		request := generateRequest(accounts, daysBack, maxDays, invalidRatio)

		value, err := json.Marshal(request)
		if err != nil {
			return nil, err
		}

		messages = append(messages, kafka.Message{
			Key:   request.TenantID + ":" + request.AccountID,
			Value: value,
		})
	}
	return messages, nil
}

func main() {
	totalMessages := flag.Int("count", 1000, "Total number of refresh requests to generate. Use -1 for infinite.")
	batchSize := flag.Int("batch-size", 100, "Number of messages per batch")
	topic := flag.String("topic", "", "Kafka topic to send messages to (required)")
	brokers := flag.String("brokers", "", "Kafka brokers (comma-separated) (required)")
	delayMs := flag.Int("delay-ms", 100, "Delay in milliseconds between batches")
	tenants := flag.Int("tenants", 10, "Number of unique tenants")
	accountsPerTenant := flag.Int("accounts-per-tenant", 5, "Number of accounts per tenant")
	daysBack := flag.Int("days-back", 90, "How far back the requested windows may end")
	maxDays := flag.Int("max-days", 31, "Maximum number of days per request")
	invalidRatio := flag.Float64("invalid-ratio", 0.02, "Share of requests sent with an inverted range")
	flag.Parse()

	if *topic == "" {
		log.Fatal("The 'topic' flag is required")
	}
	if *brokers == "" {
		log.Fatal("The 'brokers' flag is required")
	}
	if *maxDays < 1 || *maxDays > domain.MaxRangeDays {
		log.Fatalf("The 'max-days' flag must be between 1 and %d", domain.MaxRangeDays)
	}

	accounts := generateAccounts(*tenants, *accountsPerTenant)

	isInfinite := *totalMessages == -1
	log.Printf("Starting refresh datagen: count=%d batch=%d accounts=%d", *totalMessages, *batchSize, len(accounts))

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	kafkaClient, err := kafka.NewKafkaClient(logger, *brokers, "", *batchSize)
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}
	defer kafkaClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping...")
		cancel()
	}()

	messagesSent := 0
	startTime := time.Now()

	for isInfinite || messagesSent < *totalMessages {
		select {
		case <-ctx.Done():
			log.Println("Shutdown requested, stopping message generation")
			return
		default:
		}

		currentBatchSize := *batchSize
		if !isInfinite && *totalMessages-messagesSent < currentBatchSize {
			currentBatchSize = *totalMessages - messagesSent
		}

		messages, err := generateBatch(currentBatchSize, accounts, *daysBack, *maxDays, *invalidRatio)
		if err != nil {
			log.Fatalf("Failed to generate batch: %v", err)
		}

		if err := kafkaClient.Publish(ctx, *topic, messages); err != nil {
			log.Printf("Failed to send batch: %v", err)
			time.Sleep(time.Second)
			continue
		}

		messagesSent += len(messages)
		elapsed := time.Since(startTime)
		log.Printf("Sent %d messages (%.1f msg/s)", messagesSent, float64(messagesSent)/elapsed.Seconds())

		time.Sleep(time.Duration(*delayMs) * time.Millisecond)
	}

	log.Printf("Datagen finished: %d refresh requests in %s", messagesSent, time.Since(startTime).Round(time.Millisecond))
}
