//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/adapter/kafka"
	"github.com/couchcryptid/weathernft-service/internal/config"
	"github.com/couchcryptid/weathernft-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-weathernft-events"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("weathernft-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func TestPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	require.NoError(t, kafka.CreateTopic([]string{broker}, testTopic, 1, 1))
	// Creating it twice is fine.
	require.NoError(t, kafka.CreateTopic([]string{broker}, testTopic, 1, 1))

	pub := kafka.NewPublisher(&config.Config{
		KafkaBrokers:     []string{broker},
		KafkaEventsTopic: testTopic,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer pub.Close()

	now := time.Now().UTC().Truncate(time.Second)
	change := domain.EventChange{
		Kind: domain.ChangeGenerated,
		Event: domain.WeatherEvent{
			EventID:      "evt_integration",
			Rarity:       domain.RarityRare,
			AIAlgorithm:  "AquaDetect-v2",
			CaptureSlots: 5,
			Active:       true,
			Price:        decimal.NewFromInt(20),
			CreatedAt:    now,
			ExpiresAt:    now.Add(24 * time.Hour),
		},
		OccurredAt: now,
	}
	require.NoError(t, pub.PublishEvents(ctx, []domain.EventChange{change}))

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		StartOffset: kafkago.FirstOffset,
	})
	defer reader.Close()

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err, "read from events topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "evt_integration", string(msg.Key))
	assert.Equal(t, "generated", headers["change_kind"])
	assert.Equal(t, "rare", headers["rarity"])

	var got domain.EventChange
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, change.Event.EventID, got.Event.EventID)
	assert.Equal(t, change.Kind, got.Kind)
}
