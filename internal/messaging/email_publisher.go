package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"portal-server/internal/models"
)

// ExchangeEmails is the fanout exchange for back-office notification
// events. The mailer service consumes it and owns email rendering and
// delivery.
const ExchangeEmails = "portal.emails"

// EmailEventPublisher publishes notification events for the mailer.
type EmailEventPublisher interface {
	Publish(ctx context.Context, event models.EmailEvent) error
	Close() error
}

// Compile-time check to ensure implementation satisfies the interface.
var _ EmailEventPublisher = (*RabbitMQEmailPublisher)(nil)

// RabbitMQEmailPublisher publishes email events to RabbitMQ. The
// connection is assumed stable; reconnect handling is owned by the
// caller that established it.
type RabbitMQEmailPublisher struct {
	conn   *amqp091.Connection
	ch     *amqp091.Channel
	logger *zap.Logger
}

// NewRabbitMQEmailPublisher declares the fanout exchange and returns a
// ready publisher.
func NewRabbitMQEmailPublisher(conn *amqp091.Connection, logger *zap.Logger) (*RabbitMQEmailPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Durable so the exchange survives a broker restart.
	err = ch.ExchangeDeclare(
		ExchangeEmails, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", ExchangeEmails, err)
	}

	log := logger.Named("EmailPublisher")
	log.Info("Email events exchange declared", zap.String("exchange", ExchangeEmails))

	return &RabbitMQEmailPublisher{conn: conn, ch: ch, logger: log}, nil
}

// Publish sends one event to the exchange.
func (p *RabbitMQEmailPublisher) Publish(ctx context.Context, event models.EmailEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal email event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		ExchangeEmails, // exchange
		"",             // routing key (unused for fanout)
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   event.Timestamp,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish email event", zap.String("type", event.Type), zap.Error(err))
		return fmt.Errorf("failed to publish email event: %w", err)
	}

	p.logger.Debug("Email event published", zap.String("type", event.Type))
	return nil
}

// Close releases the channel. The connection itself is closed by main.
func (p *RabbitMQEmailPublisher) Close() error {
	return p.ch.Close()
}
