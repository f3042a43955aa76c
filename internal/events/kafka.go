package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures KafkaPublisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	BatchTimeout time.Duration
}

// KafkaPublisher writes events to a Kafka topic keyed by room id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a KafkaPublisher. Connections are opened lazily
// on the first write.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("events: kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("events: kafka topic is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	errorLogger := logger.With("component", "kafka_writer")

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  cfg.MaxAttempts,
			BatchTimeout: cfg.BatchTimeout,
			Logger:       kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				errorLogger.Error(fmt.Sprintf(msg, args...))
			}),
		},
	}, nil
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	message, err := kafkaMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("events: write %s to kafka: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func kafkaMessage(event Event) (kafka.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("events: marshal %s: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(event.Key()),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
