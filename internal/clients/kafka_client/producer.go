package kafka_client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/tweetsense/internal/models"
)

type messageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// Publisher emits one event per analysis.
type Publisher struct {
	producer messageProducer
	topic    string
}

func NewPublisher(cfg KafkaConfig) (*Publisher, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...", slog.String("broker", cfg.Broker))

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "tweetsense"
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Broker,
		"client.id":          clientID,
		"enable.idempotence": true,
		"acks":               "all",
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &Publisher{producer: p, topic: cfg.topic()}, nil
}

func (p *Publisher) Close() {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := p.producer.Flush(FLUSH_TIMEOUT_MS); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}

func (p *Publisher) buildMessage(a models.Analysis) (*kafka.Message, error) {
	value, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] failed to marshal analysis: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(a.ID),
		Value:          value,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(a.Source)},
			{Key: "label", Value: []byte(a.Label)},
		},
		Timestamp: a.AnalyzedAt,
	}, nil
}

// Record publishes every analysis and waits for the delivery reports.
func (p *Publisher) Record(ctx context.Context, analyses []models.Analysis) error {
	if len(analyses) == 0 {
		return nil
	}

	deliveries := make(chan kafka.Event, len(analyses))
	pending := 0

	for _, a := range analyses {
		msg, err := p.buildMessage(a)
		if err != nil {
			return err
		}

		for i := 0; i < MAX_RETRIES; i++ {
			err = p.producer.Produce(msg, deliveries)
			if err == nil {
				break
			}
			slog.Warn("[KafkaClient] Failed to produce message, retrying...",
				slog.Int("attempt", i+1),
				slog.String("error", err.Error()))
			time.Sleep(RETRY_DELAY)
		}
		if err != nil {
			return fmt.Errorf("[KafkaClient] failed to produce analysis %s: %w", a.ID, err)
		}
		pending++
	}

	timeout := time.NewTimer(DELIVERY_TIMEOUT)
	defer timeout.Stop()

	for pending > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("[KafkaClient] timed out waiting for %d delivery reports", pending)
		case ev := <-deliveries:
			pending--
			if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				return fmt.Errorf("[KafkaClient] delivery failed: %w", m.TopicPartition.Error)
			}
		}
	}

	slog.Debug("[KafkaClient] Published analyses",
		slog.String("topic", p.topic),
		slog.Int("count", len(analyses)))
	return nil
}
