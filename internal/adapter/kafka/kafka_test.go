package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/config"
	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChange() domain.EventChange {
	now := time.Date(2025, 6, 21, 10, 30, 0, 0, time.UTC)
	return domain.EventChange{
		Kind: domain.ChangeCaptured,
		Event: domain.WeatherEvent{
			EventID:       "evt_1",
			Type:          "thunderstorm",
			AIAlgorithm:   "StormChaser-v4",
			Rarity:        domain.RarityEpic,
			CaptureSlots:  3,
			CapturedCount: 1,
			Active:        true,
			Price:         decimal.NewFromInt(35),
			CreatedAt:     now,
			ExpiresAt:     now.Add(24 * time.Hour),
		},
		OccurredAt: now,
	}
}

func TestSerializeToMessage(t *testing.T) {
	change := testChange()

	msg, err := serializeToMessage(change)
	require.NoError(t, err)

	assert.Equal(t, []byte("evt_1"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "change_kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("captured"), msg.Headers[0].Value)
	assert.Equal(t, "rarity", msg.Headers[1].Key)
	assert.Equal(t, []byte("epic"), msg.Headers[1].Value)
	assert.Equal(t, "occurred_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2025-06-21T10:30:00Z"), msg.Headers[2].Value)

	var decoded domain.EventChange
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, domain.ChangeCaptured, decoded.Kind)
	assert.Equal(t, "evt_1", decoded.Event.EventID)
	assert.Equal(t, 1, decoded.Event.CapturedCount)
	assert.True(t, decoded.Event.Price.Equal(decimal.NewFromInt(35)))
}

func TestPublishEvents_EmptyBatchIsNoop(t *testing.T) {
	p := NewPublisher(&config.Config{
		KafkaBrokers:     []string{"127.0.0.1:1"},
		KafkaEventsTopic: "weathernft-events",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer p.Close()

	require.NoError(t, p.PublishEvents(context.Background(), nil))
}

func TestCreateTopic_NoBrokers(t *testing.T) {
	require.Error(t, CreateTopic(nil, "weathernft-events", 1, 1))
}
