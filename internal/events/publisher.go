package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const exchangeName = "roadsheet.shifts"

// ShiftClosedEvent is consumed by the downstream payroll process. Earnings is
// the final figure computed at close-out, as a 2-decimal string.
type ShiftClosedEvent struct {
	ShiftID      string `json:"shift_id"`
	DriverID     string `json:"driver_id"`
	VehicleID    string `json:"vehicle_id"`
	ServiceDate  string `json:"service_date"`
	Receipts     string `json:"receipts"`
	Earnings     string `json:"earnings"`
	DeclaredCash string `json:"declared_cash,omitempty"`
	ClosedAt     string `json:"closed_at"`
}

// ShiftValidatedEvent signals the administrative confirmation of a closed shift.
type ShiftValidatedEvent struct {
	ShiftID     string `json:"shift_id"`
	DriverID    string `json:"driver_id"`
	ValidatedAt string `json:"validated_at"`
}

// Publisher emits shift lifecycle events for external consumers.
type Publisher interface {
	PublishShiftClosed(ctx context.Context, event ShiftClosedEvent) error
	PublishShiftValidated(ctx context.Context, event ShiftValidatedEvent) error
}

// AMQPPublisher publishes shift events on a RabbitMQ topic exchange.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     zerolog.Logger
}

// NewAMQPPublisher dials RabbitMQ and declares the shift events exchange.
func NewAMQPPublisher(url string, log zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: channel, log: log}, nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

// PublishShiftClosed emits a shift.closed event keyed by shift id.
func (p *AMQPPublisher) PublishShiftClosed(ctx context.Context, event ShiftClosedEvent) error {
	return p.publish(ctx, fmt.Sprintf("shift.closed.%s", event.ShiftID), event)
}

// PublishShiftValidated emits a shift.validated event keyed by shift id.
func (p *AMQPPublisher) PublishShiftValidated(ctx context.Context, event ShiftValidatedEvent) error {
	return p.publish(ctx, fmt.Sprintf("shift.validated.%s", event.ShiftID), event)
}

func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", routingKey).Msg("failed to publish shift event")
		return err
	}

	p.log.Debug().Str("routing_key", routingKey).Msg("shift event published")
	return nil
}

// Ensure AMQPPublisher implements Publisher.
var _ Publisher = (*AMQPPublisher)(nil)
