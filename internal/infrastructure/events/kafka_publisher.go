package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/ports"
)

// DefaultTopic receives one message per successful refresh.
const DefaultTopic = "countries.refreshed"

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RefreshEvent is the JSON payload published after a refresh.
type RefreshEvent struct {
	Type   string               `json:"type"`
	Result domain.RefreshResult `json:"result"`
}

// KafkaPublisher announces refresh results on a Kafka topic.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher builds a writer for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	})
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: 10 * time.Second}
}

// PublishRefresh writes the result keyed by its run id.
func (k *KafkaPublisher) PublishRefresh(ctx context.Context, result domain.RefreshResult) error {
	value, err := json.Marshal(RefreshEvent{Type: "countries.refreshed", Result: result})
	if err != nil {
		return fmt.Errorf("marshal refresh event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(result.RunID),
		Value: value,
		Time:  result.FinishedAt,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write refresh event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// Noop discards events; used when no brokers are configured.
type Noop struct{}

var _ ports.EventPublisher = Noop{}

// PublishRefresh does nothing.
func (Noop) PublishRefresh(context.Context, domain.RefreshResult) error { return nil }
