package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/couchcryptid/weathernft-service/internal/config"
	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "weathernft:settings"

func newRepo(t *testing.T) (*SettingsRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := NewClient(&config.Config{RedisAddr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSettingsRepository(client, testKey), srv
}

func TestLoad_NothingSaved(t *testing.T) {
	repo, _ := newRepo(t)

	_, found, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveThenLoad(t *testing.T) {
	repo, srv := newRepo(t)
	ctx := context.Background()

	snap := settings.Default()
	snap.CreditPrice = 8
	snap.EventPricing[domain.RarityEpic] = 40
	snap.AISettings.EnabledAlgorithms = []string{"StormChaser-v4"}

	require.NoError(t, repo.Save(ctx, snap))
	assert.True(t, srv.Exists(testKey))
	assert.Zero(t, srv.TTL(testKey))

	got, found, err := repo.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("loaded settings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_CorruptValue(t *testing.T) {
	repo, srv := newRepo(t)
	require.NoError(t, srv.Set(testKey, "{not json"))

	_, _, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal settings")
}

func TestServerDown(t *testing.T) {
	repo, srv := newRepo(t)
	srv.Close()
	ctx := context.Background()

	require.Error(t, repo.CheckReadiness(ctx))
	require.Error(t, repo.Save(ctx, settings.Default()))
	_, _, err := repo.Load(ctx)
	require.Error(t, err)
}

func TestCheckReadiness(t *testing.T) {
	repo, _ := newRepo(t)
	require.NoError(t, repo.CheckReadiness(context.Background()))
}
