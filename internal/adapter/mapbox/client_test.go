package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	c := NewClient(testToken, 5*time.Second, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = baseURL
	return c
}

func serveJSON(t *testing.T, resp response) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/139.650000,35.680000.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		assert.Equal(t, "place,locality,region", r.URL.Query().Get("types"))

		resp := response{Features: []feature{{
			PlaceName: "Shinjuku, Tokyo, Japan",
			Text:      "Shinjuku",
			Relevance: 1,
			Context: []placeRef{
				{ID: "region.2301", Text: "Tokyo"},
				{ID: "country.8744", Text: "Japan"},
			},
		}}}
		w.Header().Set(headerContentType, contentTypeJSON)
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	loc, found, err := testClient(srv.URL, metrics).ReverseGeocode(context.Background(), 35.68, 139.65)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, domain.Location{City: "Shinjuku", Country: "Japan", Lat: 35.68, Lng: 139.65}, loc)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("success")), 0)
}

func TestClient_ReverseGeocode_CountryFromPlaceName(t *testing.T) {
	srv := serveJSON(t, response{Features: []feature{{
		PlaceName: "Reykjavík, Capital Region, Iceland",
		Text:      "Reykjavík",
	}}})

	loc, found, err := testClient(srv.URL, observability.NewMetricsForTesting()).
		ReverseGeocode(context.Background(), 64.14, -21.94)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Reykjavík", loc.City)
	assert.Equal(t, "Iceland", loc.Country)
}

func TestClient_ReverseGeocode_NoResults(t *testing.T) {
	srv := serveJSON(t, response{Features: []feature{}})

	metrics := observability.NewMetricsForTesting()
	loc, found, err := testClient(srv.URL, metrics).ReverseGeocode(context.Background(), 0, -150)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, loc.City)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("not_found")), 0)
}

func TestClient_ReverseGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	_, _, err := testClient(srv.URL, metrics).ReverseGeocode(context.Background(), 35.68, 139.65)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("error")), 0)
}

func TestClient_ReverseGeocode_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"features":`))
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL, observability.NewMetricsForTesting()).
		ReverseGeocode(context.Background(), 35.68, 139.65)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_ReverseGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.httpClient.Timeout = 50 * time.Millisecond

	_, _, err := c.ReverseGeocode(context.Background(), 35.68, 139.65)
	require.Error(t, err)
}
