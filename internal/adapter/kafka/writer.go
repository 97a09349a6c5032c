package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/config"
	"github.com/couchcryptid/weathernft-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces event ledger transitions to a Kafka topic.
// It implements engine.EventPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured events topic.
// Messages are keyed by event id so every transition of one event lands on
// the same partition.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishEvents serializes and publishes a batch of transitions in a single
// WriteMessages call.
func (p *Publisher) PublishEvents(ctx context.Context, changes []domain.EventChange) error {
	if len(changes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(changes))
	for i := range changes {
		msg, err := serializeToMessage(changes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d event changes: %w", len(msgs), err)
	}
	p.logger.Debug("event changes published", "count", len(msgs), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an EventChange into a Kafka message.
func serializeToMessage(change domain.EventChange) (kafkago.Message, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event change: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(change.Event.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "change_kind", Value: []byte(change.Kind)},
			{Key: "rarity", Value: []byte(change.Event.Rarity)},
			{Key: "occurred_at", Value: []byte(change.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}

// CreateTopic creates the events topic through the cluster controller.
// An existing topic is not an error.
func CreateTopic(brokers []string, topic string, partitions, replicationFactor int) error {
	if len(brokers) == 0 {
		return fmt.Errorf("create topic %s: no brokers", topic)
	}
	conn, err := kafkago.Dial("tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}

	controllerConn, err := kafkago.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	})
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}
