package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
)

const metadataAggregateID = "aggregate_id"

// KafkaPublisher publishes events through Watermill. Messages are keyed by
// aggregate id so events of one user stay ordered within a partition.
type KafkaPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *logrus.Logger
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Logger  *logrus.Logger
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.NewWithPartitioningMarshaler(partitionKey),
	}, NewLogrusAdapter(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	return NewWatermillPublisher(pub, cfg.Topic, cfg.Logger), nil
}

// NewWatermillPublisher wraps any Watermill publisher.
func NewWatermillPublisher(pub message.Publisher, topic string, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{publisher: pub, topic: topic, logger: logger}
}

func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(metadataAggregateID), nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]*message.Message, 0, len(events))
	for _, e := range events {
		env, err := NewEnvelope(e)
		if err != nil {
			return err
		}
		body, err := env.Marshal()
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		msg := message.NewMessage(env.ID, body)
		msg.SetContext(ctx)
		msg.Metadata.Set("event_type", string(env.Type))
		msg.Metadata.Set("source", env.Source)
		msg.Metadata.Set("version", env.Version)
		msg.Metadata.Set(metadataAggregateID, env.AggregateID)
		msg.Metadata.Set("timestamp", env.OccurredAt.Format(time.RFC3339))
		msgs = append(msgs, msg)
	}

	if err := p.publisher.Publish(p.topic, msgs...); err != nil {
		if p.logger != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{"topic": p.topic, "count": len(msgs)}).Error("failed to publish user events")
		}
		return fmt.Errorf("failed to publish user events: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.publisher.Close()
}

var _ event.Publisher = (*KafkaPublisher)(nil)

// LogrusAdapter lets Watermill log through logrus.
type LogrusAdapter struct {
	entry *logrus.Entry
}

func NewLogrusAdapter(logger *logrus.Logger) watermill.LoggerAdapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusAdapter{entry: logrus.NewEntry(logger)}
}

func (a *LogrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.with(fields).WithError(err).Error(msg)
}

func (a *LogrusAdapter) Info(msg string, fields watermill.LogFields) {
	a.with(fields).Info(msg)
}

func (a *LogrusAdapter) Debug(msg string, fields watermill.LogFields) {
	a.with(fields).Debug(msg)
}

func (a *LogrusAdapter) Trace(msg string, fields watermill.LogFields) {
	a.with(fields).Trace(msg)
}

func (a *LogrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LogrusAdapter{entry: a.with(fields)}
}

func (a *LogrusAdapter) with(fields watermill.LogFields) *logrus.Entry {
	if len(fields) == 0 {
		return a.entry
	}
	return a.entry.WithFields(logrus.Fields(fields))
}
