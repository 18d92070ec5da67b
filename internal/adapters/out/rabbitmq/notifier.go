// Package rabbitmq queues booking confirmation e-mails for the
// communications service.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"freight/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const messageTypeBookingConfirmation = "booking_confirmation"

var _ ports.Notifier = (*Notifier)(nil)

// Channel is the part of amqp.Channel the notifier needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Notifier struct {
	conn    *amqp.Connection
	channel Channel
	queue   string
	logger  *slog.Logger
}

// Dial connects to url and declares queue as durable.
func Dial(url, queue string, logger *slog.Logger) (*Notifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	n := NewNotifierWithChannel(ch, queue, logger)
	n.conn = conn
	return n, nil
}

func NewNotifierWithChannel(ch Channel, queue string, logger *slog.Logger) *Notifier {
	return &Notifier{channel: ch, queue: queue, logger: logger.With("component", "RabbitNotifier")}
}

func (n *Notifier) NotifyBooked(ctx context.Context, b ports.BookingNotification) error {
	body, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode booking notification: %w", err)
	}

	err = n.channel.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         messageTypeBookingConfirmation,
		MessageId:    b.ShipmentID,
		Timestamp:    b.BookedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish booking notification: %w", err)
	}

	n.logger.Debug("booking notification queued", "shipment_id", b.ShipmentID, "queue", n.queue)
	return nil
}

func (n *Notifier) Close() error {
	var connErr error
	chErr := n.channel.Close()
	if n.conn != nil {
		connErr = n.conn.Close()
	}
	return errors.Join(chErr, connErr)
}
