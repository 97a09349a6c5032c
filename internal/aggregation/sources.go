package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/ledger"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/couchcryptid/weathernft-service/internal/users"
)

// AIStats is the AI service's prediction summary.
type AIStats struct {
	TotalEvents  int
	SystemUptime time.Duration
}

// AlgorithmInfo is one entry of the AI service's algorithm listing.
type AlgorithmInfo struct {
	Name     string
	Accuracy float64
}

// ChainStatus is the blockchain service's liveness signal. Uptime is zero
// when the service does not report one.
type ChainStatus struct {
	Uptime time.Duration
}

// Remote collaborators. Each may be down, slow or return garbage; an error
// degrades only its own dashboard section.
type (
	AIStatsSource interface {
		AIStats(ctx context.Context) (AIStats, error)
	}
	AlgorithmSource interface {
		Algorithms(ctx context.Context) ([]AlgorithmInfo, error)
	}
	EventSource interface {
		ActiveEventCount(ctx context.Context) (int, error)
	}
	ChainHealthSource interface {
		ChainHealth(ctx context.Context) (ChainStatus, error)
	}
)

// Local read-only state.
type (
	UserSummary interface {
		Summary() users.Summary
	}
	LedgerStats interface {
		Stats() ledger.Stats
	}
	LogTail interface {
		Recent(n int) []domain.AdminLogEntry
	}
	SettingsReader interface {
		Get() settings.Snapshot
	}
)

// Source names used in metrics, logs and DashboardView.Degraded.
const (
	SourceAIStats    = "ai_stats"
	SourceAlgorithms = "ai_algorithms"
	SourceEvents     = "events"
	SourceChain      = "blockchain"
)

// UpstreamUnavailableError records a failed upstream query. Build converts
// it into a degraded section; Algorithms returns it.
type UpstreamUnavailableError struct {
	Source string
	Err    error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }
