package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

type KafkaClient struct {
	logger    *slog.Logger
	consumer  sarama.ConsumerGroup
	producer  sarama.SyncProducer
	brokers   []string
	batchSize int
}

type Message struct {
	Key      string
	Value    []byte
	Headers  map[string]string
	internal *sarama.ConsumerMessage
}

type Handler func(messages []Message) error

// NewKafkaClient cria o producer e, quando groupID é informado, também o
// consumer group. Processos que só publicam passam groupID vazio.
func NewKafkaClient(logger *slog.Logger, brokers string, groupID string, batchSize int) (*KafkaClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if batchSize <= 0 {
		batchSize = 1
	}

	brokerList := strings.Split(brokers, ",")

	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0

	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Group.Session.Timeout = 30 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 10 * time.Second
	// cada mensagem roda o pipeline inteiro, então o lote é bem mais lento que um simples upsert
	config.Consumer.MaxProcessingTime = 60 * time.Second
	config.Consumer.MaxWaitTime = 100 * time.Millisecond
	config.ChannelBufferSize = batchSize * 2

	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 50 * time.Millisecond
	config.Producer.MaxMessageBytes = 1024 * 1024

	client := &KafkaClient{
		logger:    logger,
		brokers:   brokerList,
		batchSize: batchSize,
	}

	if groupID != "" {
		consumer, err := sarama.NewConsumerGroup(brokerList, groupID, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer group: %w", err)
		}
		client.consumer = consumer
	}

	producer, err := sarama.NewSyncProducer(brokerList, config)
	if err != nil {
		if client.consumer != nil {
			client.consumer.Close()
		}
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	client.producer = producer

	logger.Info("Kafka client initialized", "brokers", brokerList, "group_id", groupID, "batch_size", batchSize)

	return client, nil
}

// Consume blocks until ctx is cancelled, delivering batches of up to
// batchSize messages to handler. A failed batch is retried with backoff
// before the next one is read, and offsets are only marked once the handler
// returns nil.
func (k *KafkaClient) Consume(ctx context.Context, handler Handler, topic string) error {
	if k.consumer == nil {
		return errors.New("kafka client was created without a consumer group")
	}

	consumerHandler := newConsumerGroupHandler(k.logger, handler, k.batchSize)

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("Kafka consumer context cancelled", "topic", topic)
			return nil
		default:
			if err := k.consumer.Consume(ctx, []string{topic}, consumerHandler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return nil
				}
				k.logger.Error("Error consuming from topic", "topic", topic, "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
		}
	}
}

// Publish sends every message synchronously and reports how many failed.
func (k *KafkaClient) Publish(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	producerMessages := make([]*sarama.ProducerMessage, 0, len(messages))
	for _, msg := range messages {
		producerMessages = append(producerMessages, &sarama.ProducerMessage{
			Topic:   topic,
			Key:     sarama.StringEncoder(msg.Key),
			Value:   sarama.ByteEncoder(msg.Value),
			Headers: toRecordHeaders(msg.Headers),
		})
	}

	if err := k.producer.SendMessages(producerMessages); err != nil {
		var producerErrors sarama.ProducerErrors
		if errors.As(err, &producerErrors) {
			k.logger.Error("Batch completed with errors", "topic", topic, "failed", len(producerErrors), "total", len(messages))
			return fmt.Errorf("batch send failed: %d/%d messages failed: %w", len(producerErrors), len(messages), err)
		}
		return fmt.Errorf("batch send failed: %w", err)
	}

	k.logger.Debug("Batch sent", "topic", topic, "count", len(messages))
	return nil
}

func (k *KafkaClient) Close() error {
	var errs []error

	if k.consumer != nil {
		if err := k.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
		}
	}

	if err := k.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}

	return errors.Join(errs...)
}

func toRecordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}

	recordHeaders := make([]sarama.RecordHeader, 0, len(headers))
	for key, value := range headers {
		recordHeaders = append(recordHeaders, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}
	return recordHeaders
}

func fromRecordHeaders(headers []*sarama.RecordHeader) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	result := make(map[string]string, len(headers))
	for _, header := range headers {
		if header == nil {
			continue
		}
		result[string(header.Key)] = string(header.Value)
	}
	return result
}

// consumerGroupHandler implementa sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	logger          *slog.Logger
	handler         Handler
	batchSize       int
	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
}

func newConsumerGroupHandler(logger *slog.Logger, handler Handler, batchSize int) *consumerGroupHandler {
	return &consumerGroupHandler{
		logger:          logger,
		handler:         handler,
		batchSize:       batchSize,
		retryBackoff:    500 * time.Millisecond,
		maxRetryBackoff: 30 * time.Second,
	}
}

func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session setup", "batch_size", h.batchSize, "claims", session.Claims())
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	batchTimeout := 2 * time.Second

	h.logger.Info("Starting partition consumer", "topic", claim.Topic(), "partition", claim.Partition())

	messages := make([]Message, 0, h.batchSize)
	timer := time.NewTimer(batchTimeout)
	defer timer.Stop()

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				h.processBatch(session, messages)
				return nil
			}

			messages = append(messages, Message{
				Key:      string(message.Key),
				Value:    message.Value,
				Headers:  fromRecordHeaders(message.Headers),
				internal: message,
			})

			if len(messages) >= h.batchSize {
				if !h.processBatch(session, messages) {
					return nil
				}
				messages = messages[:0]
				timer.Reset(batchTimeout)
			}

		case <-timer.C:
			if !h.processBatch(session, messages) {
				return nil
			}
			messages = messages[:0]
			timer.Reset(batchTimeout)

		case <-session.Context().Done():
			h.processBatch(session, messages)
			return nil
		}
	}
}

// processBatch retenta o lote até o handler aceitar ou a sessão acabar. O
// lote seguinte só é lido depois deste, então nenhum offset posterior é
// marcado por cima de um lote com falha. Retorna false quando a sessão
// terminou sem o lote ser marcado; ele volta na próxima sessão.
func (h *consumerGroupHandler) processBatch(session sarama.ConsumerGroupSession, messages []Message) bool {
	if len(messages) == 0 {
		return true
	}

	backoff := h.retryBackoff
	for attempt := 1; ; attempt++ {
		err := h.handler(messages)
		if err == nil {
			break
		}

		h.logger.Error("Handler error for batch, retrying",
			"count", len(messages),
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		select {
		case <-session.Context().Done():
			h.logger.Warn("Session ended with an unprocessed batch", "count", len(messages))
			return false
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, h.maxRetryBackoff)
	}

	for _, msg := range messages {
		if msg.internal != nil {
			session.MarkMessage(msg.internal, "")
		}
	}

	h.logger.Debug("Batch processed", "count", len(messages))
	return true
}
