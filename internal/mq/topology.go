package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeFleet Exchange = "cohort.fleet"
)

// Queues — имена очередей.
const (
	QueueAccountsCompleted Queue = "accounts.completed"
	QueueRunsCompleted     Queue = "runs.completed"
)

// Routing keys.
const (
	RoutingKeyAccountCompleted RoutingKey = "account.completed"
	RoutingKeyRunCompleted     RoutingKey = "run.completed"
)

// SetupTopology объявляет exchange, очереди и bindings.
// Идемпотентна: повторное объявление существующей топологии безопасно.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}

		if err := declareQueues(ch); err != nil {
			return err
		}

		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		string(ExchangeFleet), // name
		"direct",              // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeFleet, err)
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	queues := []Queue{
		QueueAccountsCompleted,
		QueueRunsCompleted,
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q), // name
			true,      // durable
			false,     // delete when unused
			false,     // exclusive
			false,     // no-wait
			nil,       // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменнику.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
	}{
		{QueueAccountsCompleted, RoutingKeyAccountCompleted},
		{QueueRunsCompleted, RoutingKeyRunCompleted},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),       // queue name
			string(b.routingKey),  // routing key
			string(ExchangeFleet), // exchange
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, ExchangeFleet, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Cohort RabbitMQ Topology:

    cohort.fleet (direct)
    ├── accounts.completed [routing: account.completed]
    │       Consumer: external (notifications, analytics)
    └── runs.completed [routing: run.completed]
            Consumer: external (notifications, analytics)
  `
}
