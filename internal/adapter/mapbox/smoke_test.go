//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ReverseGeocode(t *testing.T) {
	c := smokeClient(t)

	loc, found, err := c.ReverseGeocode(context.Background(), 35.6762, 139.6503)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEmpty(t, loc.City)
	assert.Equal(t, "Japan", loc.Country)
}

func TestSmoke_ReverseGeocode_OpenOcean(t *testing.T) {
	c := smokeClient(t)

	_, found, err := c.ReverseGeocode(context.Background(), -30, -140)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	cached, err := NewCachedGeocoder(smokeClient(t), 10, observability.NewMetricsForTesting())
	require.NoError(t, err)

	r1, _, err := cached.ReverseGeocode(context.Background(), 48.8566, 2.3522)
	require.NoError(t, err)
	r2, _, err := cached.ReverseGeocode(context.Background(), 48.8566, 2.3522)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, cached.Len())
}
