package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeAccountCompleted MessageType = "account.completed"
	MessageTypeRunCompleted     MessageType = "run.completed"
)

// Publisher публикует события запусков в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// AccountCompletedPayload — payload события завершения аккаунта.
type AccountCompletedPayload struct {
	RunID   uuid.UUID `json:"run_id"`
	Address string    `json:"address"`
	Status  string    `json:"status"` // COMPLETED, FAILED или ABORTED
	Error   string    `json:"error,omitempty"`
	Fatal   bool      `json:"fatal,omitempty"`
}

// RunCompletedPayload — payload события завершения запуска.
type RunCompletedPayload struct {
	RunID       uuid.UUID `json:"run_id"`
	Accounts    int       `json:"accounts"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	SuccessRate float64   `json:"success_rate"`
	DurationMs  int64     `json:"duration_ms"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishAccountCompleted публикует итог одного аккаунта.
func (p *Publisher) PublishAccountCompleted(ctx context.Context, payload AccountCompletedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeAccountCompleted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeFleet, RoutingKeyAccountCompleted, msg)
}

// PublishRunCompleted публикует сводку завершённого запуска.
func (p *Publisher) PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeRunCompleted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeFleet, RoutingKeyRunCompleted, msg)
}
