// Package kafka publishes shipment events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"freight/internal/core/ports"

	skafka "github.com/segmentio/kafka-go"
)

const headerEventType = "event-type"

var _ ports.EventPublisher = (*Publisher)(nil)

// Writer is the part of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

type Publisher struct {
	writer Writer
	logger *slog.Logger
}

// NewPublisher writes to topic on the broker at brokerURL.
func NewPublisher(brokerURL, topic string, logger *slog.Logger) *Publisher {
	w := &skafka.Writer{
		Addr:                   skafka.TCP(brokerURL),
		Topic:                  topic,
		Balancer:               &skafka.Hash{},
		RequiredAcks:           skafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(w, logger)
}

func NewPublisherWithWriter(w Writer, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger.With("component", "KafkaPublisher")}
}

// Publish keys messages by record key so all events of one shipment land on
// the same partition in order.
func (p *Publisher) Publish(ctx context.Context, event ports.ShipmentEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	msg := skafka.Message{
		Key:     []byte(event.RecordKey),
		Value:   value,
		Time:    event.OccurredAt,
		Headers: []skafka.Header{{Key: headerEventType, Value: []byte(event.Type)}},
	}
	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}

	p.logger.Debug("event published", "type", event.Type, "key", event.RecordKey)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
