package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes events to a durable queue through the default exchange.
type RabbitPublisher struct {
	conn   *amqp.Connection
	ch     amqpChannel
	Queue  string
	Logger *logrus.Logger
}

func NewRabbitPublisher(url, queue string, logger *logrus.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Queue: queue, Logger: logger}, nil
}

func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Publish sends events in order and stops at the first failure.
func (p *RabbitPublisher) Publish(ctx context.Context, events ...event.Event) error {
	for _, e := range events {
		env, err := NewEnvelope(e)
		if err != nil {
			return err
		}
		body, err := env.Marshal()
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		err = p.ch.PublishWithContext(ctx,
			"",      // default exchange
			p.Queue, // routing key = queue
			false,   // mandatory
			false,   // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    env.ID,
				Type:         string(env.Type),
				AppId:        Source,
				Timestamp:    env.OccurredAt,
				Headers:      amqp.Table{"aggregate_id": env.AggregateID, "version": env.Version},
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s to %s: %w", env.Type, p.Queue, err)
		}
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{"event_id": env.ID, "event_type": env.Type, "queue": p.Queue}).Debug("published user event")
		}
	}
	return nil
}

var _ event.Publisher = (*RabbitPublisher)(nil)
