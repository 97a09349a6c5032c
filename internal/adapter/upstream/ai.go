package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/aggregation"
)

// AIClient reads statistics, the algorithm listing and the event feed from
// the AI service.
type AIClient struct {
	client
}

// NewAIClient creates an AI service client.
func NewAIClient(baseURL string, timeout time.Duration, logger *slog.Logger) *AIClient {
	return &AIClient{client: newClient(baseURL, timeout, logger)}
}

// AIStats implements aggregation.AIStatsSource.
func (c *AIClient) AIStats(ctx context.Context) (aggregation.AIStats, error) {
	var resp struct {
		Success bool `json:"success"`
		Data    *struct {
			TotalEvents  *int     `json:"totalEvents"`
			SystemUptime *float64 `json:"systemUptime"` // seconds
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/analytics/stats", &resp); err != nil {
		return aggregation.AIStats{}, err
	}
	if !resp.Success {
		return aggregation.AIStats{}, errors.New("ai stats: success=false")
	}
	if resp.Data == nil || resp.Data.TotalEvents == nil || resp.Data.SystemUptime == nil {
		return aggregation.AIStats{}, errors.New("ai stats: missing totalEvents or systemUptime")
	}
	return aggregation.AIStats{
		TotalEvents:  *resp.Data.TotalEvents,
		SystemUptime: time.Duration(*resp.Data.SystemUptime * float64(time.Second)),
	}, nil
}

// Algorithms implements aggregation.AlgorithmSource. The service reports
// either a list of {name, accuracy} or an object keyed by algorithm name.
func (c *AIClient) Algorithms(ctx context.Context) ([]aggregation.AlgorithmInfo, error) {
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/ai/algorithms", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New("ai algorithms: success=false")
	}

	type entry struct {
		Name     string   `json:"name"`
		Accuracy *float64 `json:"accuracy"`
	}

	var entries []entry
	switch data := strings.TrimSpace(string(resp.Data)); {
	case strings.HasPrefix(data, "["):
		if err := json.Unmarshal(resp.Data, &entries); err != nil {
			return nil, fmt.Errorf("decode algorithm list: %w", err)
		}
	case strings.HasPrefix(data, "{"):
		var byName map[string]entry
		if err := json.Unmarshal(resp.Data, &byName); err != nil {
			return nil, fmt.Errorf("decode algorithm map: %w", err)
		}
		for name, e := range byName {
			e.Name = name
			entries = append(entries, e)
		}
		slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.Name, b.Name) })
	default:
		return nil, errors.New("ai algorithms: data is neither a list nor an object")
	}

	out := make([]aggregation.AlgorithmInfo, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.Accuracy == nil {
			return nil, errors.New("ai algorithms: entry without name or accuracy")
		}
		out = append(out, aggregation.AlgorithmInfo{Name: e.Name, Accuracy: *e.Accuracy})
	}
	return out, nil
}

// ActiveEventCount implements aggregation.EventSource.
func (c *AIClient) ActiveEventCount(ctx context.Context) (int, error) {
	var resp struct {
		Success bool `json:"success"`
		Count   *int `json:"count"`
	}
	if err := c.getJSON(ctx, "/api/events", &resp); err != nil {
		return 0, err
	}
	if !resp.Success || resp.Count == nil {
		return 0, errors.New("events: missing count")
	}
	return *resp.Count, nil
}
