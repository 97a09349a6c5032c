package mapbox

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Geocoder is the lookup CachedGeocoder decorates.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (domain.Location, bool, error)
}

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Coordinates
// are keyed at 4 decimal places (about 11 m).
type CachedGeocoder struct {
	inner   Geocoder
	cache   *lru.Cache[string, domain.Location]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner Geocoder, maxEntries int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	cache, err := lru.New[string, domain.Location](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &CachedGeocoder{inner: inner, cache: cache, metrics: metrics}, nil
}

// ReverseGeocode serves from the cache when possible. Only found places are
// cached so a transient miss can be retried.
func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (domain.Location, bool, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lng)
	if loc, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		loc.Lat, loc.Lng = lat, lng
		return loc, true, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	loc, found, err := c.inner.ReverseGeocode(ctx, lat, lng)
	if err != nil || !found {
		return loc, found, err
	}
	c.cache.Add(key, loc)
	return loc, true, nil
}

// Len reports the number of cached places.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}
