// Package redis persists the admin settings snapshot in Redis so it
// survives restarts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchcryptid/weathernft-service/internal/config"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client from the service configuration.
func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// SettingsRepository stores the snapshot as JSON under a single key.
// It implements engine.SettingsRepository.
type SettingsRepository struct {
	client goredis.Cmdable
	key    string
}

func NewSettingsRepository(client goredis.Cmdable, key string) *SettingsRepository {
	return &SettingsRepository{client: client, key: key}
}

// Load returns found=false when no snapshot has been saved.
func (r *SettingsRepository) Load(ctx context.Context) (settings.Snapshot, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return settings.Snapshot{}, false, nil
	}
	if err != nil {
		return settings.Snapshot{}, false, fmt.Errorf("get settings from redis: %w", err)
	}

	var snap settings.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return settings.Snapshot{}, false, fmt.Errorf("unmarshal settings: %w", err)
	}
	return snap, true, nil
}

// Save overwrites the stored snapshot. It never expires.
func (r *SettingsRepository) Save(ctx context.Context, snap settings.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set settings in redis: %w", err)
	}
	return nil
}

// CheckReadiness pings the server.
func (r *SettingsRepository) CheckReadiness(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
