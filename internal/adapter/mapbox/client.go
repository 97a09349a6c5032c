// Package mapbox names coordinates outside the monitored city list through
// the Mapbox reverse geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements engine.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// ReverseGeocode returns the city and country at a coordinate. found is
// false when Mapbox has no populated place there, e.g. open ocean.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (loc domain.Location, found bool, err error) {
	// Mapbox uses lng,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lng, lat)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,region"},
	}
	fullURL := fmt.Sprintf("%s/%s.json?%s", c.baseURL, coord, params.Encode())

	loc, found, err = c.doRequest(ctx, fullURL)
	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	case !found:
		c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	if err != nil {
		return domain.Location{}, false, err
	}
	loc.Lat, loc.Lng = lat, lng
	return loc, found, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Location, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Location{}, false, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.Location{}, false, fmt.Errorf("decode response: %w", err)
	}
	if len(mapboxResp.Features) == 0 {
		return domain.Location{}, false, nil
	}

	f := mapboxResp.Features[0]
	loc := domain.Location{City: f.Text, Country: f.country()}
	if loc.Country == "" {
		// place_name is "City, Region, Country".
		parts := strings.Split(f.PlaceName, ", ")
		loc.Country = parts[len(parts)-1]
	}
	c.logger.Debug("reverse geocoded", "city", loc.City, "country", loc.Country, "relevance", f.Relevance)
	return loc, true, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	PlaceName string     `json:"place_name"`
	Text      string     `json:"text"`
	Relevance float64    `json:"relevance"`
	Context   []placeRef `json:"context"`
}

// placeRef is one enclosing feature, e.g. {"id":"country.123","text":"Japan"}.
type placeRef struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (f feature) country() string {
	for _, ref := range f.Context {
		if strings.HasPrefix(ref.ID, "country.") {
			return ref.Text
		}
	}
	return ""
}
