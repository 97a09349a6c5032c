package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/aggregation"
)

// ChainClient checks the blockchain service's health endpoint.
type ChainClient struct {
	client
}

// NewChainClient creates a blockchain service client.
func NewChainClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ChainClient {
	return &ChainClient{client: newClient(baseURL, timeout, logger)}
}

// ChainHealth implements aggregation.ChainHealthSource. Any 2xx answer is
// healthy; an optional numeric "uptime" (seconds) in a JSON body is reported.
func (c *ChainClient) ChainHealth(ctx context.Context) (aggregation.ChainStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return aggregation.ChainStatus{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return aggregation.ChainStatus{}, fmt.Errorf("blockchain health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return aggregation.ChainStatus{}, fmt.Errorf("blockchain health: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return aggregation.ChainStatus{}, fmt.Errorf("blockchain health: read body: %w", err)
	}

	var payload struct {
		Uptime float64 `json:"uptime"`
	}
	if json.Unmarshal(body, &payload) != nil || payload.Uptime < 0 {
		c.logger.Debug("blockchain health body carried no uptime")
		return aggregation.ChainStatus{}, nil
	}
	return aggregation.ChainStatus{Uptime: time.Duration(payload.Uptime * float64(time.Second))}, nil
}
