// Package aggregation composes the admin dashboard from four remote
// collaborators and local engine state.
//
// The remote queries run concurrently, each under its own timeout and with
// no retries. A failed, slow or malformed upstream degrades only its own
// section to zero counts and status "inactive"; Build never fails.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/ledger"
	"github.com/couchcryptid/weathernft-service/internal/observability"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/couchcryptid/weathernft-service/internal/users"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout        = 4 * time.Second
	DefaultRecentActivity = 10
)

// Service status labels.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Deps are the collaborators Build reads from.
type Deps struct {
	AI         AIStatsSource
	Algorithms AlgorithmSource
	Events     EventSource
	Chain      ChainHealthSource

	Users    UserSummary
	Ledger   LedgerStats
	Logs     LogTail
	Settings SettingsReader
}

// Options tunes the aggregation.
type Options struct {
	Timeout        time.Duration // per upstream query
	RecentActivity int           // admin log entries included
	AIServiceURL   string
	ChainURL       string
	SelfURL        string
	Clock          clockwork.Clock
	StartedAt      time.Time // process start, for the admin service uptime
}

// Overview holds the headline numbers.
type Overview struct {
	ActiveEvents      int     `json:"activeEvents"`
	LocalActiveEvents int     `json:"localActiveEvents"`
	TotalUsers        int     `json:"totalUsers"`
	ActiveUsers       int     `json:"activeUsers"`
	AIPredictions     int     `json:"aiPredictions"`
	SystemUptimeHours int     `json:"systemUptime"`
	AvgAIAccuracy     float64 `json:"avgAIAccuracy"`
}

// ServiceStatus describes one backend service.
type ServiceStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	URL    string `json:"url,omitempty"`
}

// AlgorithmView is an upstream algorithm annotated with local settings.
// LastRetrained is filled by the caller from finished retraining jobs.
type AlgorithmView struct {
	Name           string    `json:"name"`
	Accuracy       float64   `json:"accuracy"`
	Enabled        bool      `json:"enabled"`
	LastRetrained  time.Time `json:"lastRetrained,omitzero"`
	NextRetraining time.Time `json:"nextRetraining"`
}

// DashboardView is the merged dashboard.
type DashboardView struct {
	Overview       Overview               `json:"overview"`
	Services       []ServiceStatus        `json:"services"`
	Events         ledger.Stats           `json:"events"`
	RecentActivity []domain.AdminLogEntry `json:"recentActivity"`
	UserStats      users.Summary          `json:"userStats"`
	Algorithms     []AlgorithmView        `json:"algorithms"`
	GeneratedAt    time.Time              `json:"generatedAt"`
	Degraded       []string               `json:"degraded"`
}

// Aggregator builds dashboards. It only reads from its dependencies.
type Aggregator struct {
	deps    Deps
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Aggregator, filling zero options with defaults.
func New(deps Deps, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RecentActivity <= 0 {
		opts.RecentActivity = DefaultRecentActivity
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = opts.Clock.Now()
	}
	return &Aggregator{deps: deps, opts: opts, logger: logger, metrics: metrics}
}

// Build queries every upstream concurrently and merges the results with
// local state. Cancelling ctx abandons in-flight queries, which then count
// as failures.
func (a *Aggregator) Build(ctx context.Context) DashboardView {
	start := a.opts.Clock.Now()

	var (
		stats      AIStats
		algorithms []AlgorithmInfo
		events     int
		chain      ChainStatus
		errs       [4]error
	)

	var g errgroup.Group
	g.Go(func() error {
		stats, errs[0] = fetch(ctx, a, SourceAIStats, func(ctx context.Context) (AIStats, error) {
			s, err := a.deps.AI.AIStats(ctx)
			if err == nil && (s.TotalEvents < 0 || s.SystemUptime < 0) {
				err = errors.New("negative counters in payload")
			}
			return s, err
		})
		return nil
	})
	g.Go(func() error {
		algorithms, errs[1] = fetch(ctx, a, SourceAlgorithms, a.listAlgorithms)
		return nil
	})
	g.Go(func() error {
		events, errs[2] = fetch(ctx, a, SourceEvents, func(ctx context.Context) (int, error) {
			n, err := a.deps.Events.ActiveEventCount(ctx)
			if err == nil && n < 0 {
				err = fmt.Errorf("negative event count %d", n)
			}
			return n, err
		})
		return nil
	})
	g.Go(func() error {
		chain, errs[3] = fetch(ctx, a, SourceChain, a.deps.Chain.ChainHealth)
		return nil
	})
	_ = g.Wait() // queries never return errors; failures are in errs

	now := a.opts.Clock.Now().UTC()
	userStats := a.deps.Users.Summary()
	ledgerStats := a.deps.Ledger.Stats()
	snap := a.deps.Settings.Get()

	view := DashboardView{
		Overview: Overview{
			LocalActiveEvents: ledgerStats.Active,
			TotalUsers:        userStats.TotalUsers,
			ActiveUsers:       userStats.ActiveUsers,
		},
		Events:         ledgerStats,
		RecentActivity: a.deps.Logs.Recent(a.opts.RecentActivity),
		UserStats:      userStats,
		Algorithms:     []AlgorithmView{},
		GeneratedAt:    now,
		Degraded:       []string{},
	}

	aiStatus := ServiceStatus{Name: "AI Backend", Status: StatusInactive, Uptime: "0h", URL: a.opts.AIServiceURL}
	if errs[0] == nil {
		view.Overview.AIPredictions = stats.TotalEvents
		view.Overview.SystemUptimeHours = int(stats.SystemUptime / time.Hour)
		aiStatus.Status = StatusActive
		aiStatus.Uptime = fmt.Sprintf("%dh", view.Overview.SystemUptimeHours)
	} else {
		view.Degraded = append(view.Degraded, SourceAIStats)
	}

	if errs[1] == nil {
		view.Overview.AvgAIAccuracy = meanAccuracy(algorithms)
		view.Algorithms = annotate(algorithms, snap, now)
	} else {
		view.Degraded = append(view.Degraded, SourceAlgorithms)
	}

	if errs[2] == nil {
		view.Overview.ActiveEvents = events
	} else {
		view.Degraded = append(view.Degraded, SourceEvents)
	}

	chainStatus := ServiceStatus{Name: "Blockchain", Status: StatusInactive, Uptime: "0h", URL: a.opts.ChainURL}
	if errs[3] == nil {
		chainStatus.Status = StatusActive
		chainStatus.Uptime = formatUptime(chain.Uptime)
	} else {
		view.Degraded = append(view.Degraded, SourceChain)
	}

	view.Services = []ServiceStatus{
		aiStatus,
		chainStatus,
		{
			Name:   "Admin Backend",
			Status: StatusActive,
			Uptime: formatUptime(now.Sub(a.opts.StartedAt)),
			URL:    a.opts.SelfURL,
		},
	}

	a.metrics.DashboardBuildDuration.Observe(a.opts.Clock.Since(start).Seconds())
	return view
}

// Algorithms queries the algorithm listing alone and annotates it with the
// local settings. Unlike Build it fails with *UpstreamUnavailableError when
// the upstream does.
func (a *Aggregator) Algorithms(ctx context.Context) ([]AlgorithmView, error) {
	list, err := fetch(ctx, a, SourceAlgorithms, a.listAlgorithms)
	if err != nil {
		return nil, err
	}
	return annotate(list, a.deps.Settings.Get(), a.opts.Clock.Now().UTC()), nil
}

func (a *Aggregator) listAlgorithms(ctx context.Context) ([]AlgorithmInfo, error) {
	list, err := a.deps.Algorithms.Algorithms(ctx)
	if err == nil {
		err = validateAlgorithms(list)
	}
	return list, err
}

func annotate(algos []AlgorithmInfo, snap settings.Snapshot, now time.Time) []AlgorithmView {
	next := now.Add(time.Duration(snap.AISettings.RetrainingIntervalHours) * time.Hour)
	out := make([]AlgorithmView, 0, len(algos))
	for _, algo := range algos {
		out = append(out, AlgorithmView{
			Name:           algo.Name,
			Accuracy:       algo.Accuracy,
			Enabled:        snap.IsEnabled(algo.Name),
			NextRetraining: next,
		})
	}
	return out
}

// fetch runs one upstream call under its own timeout and records the
// outcome. It returns once the deadline passes even if fn does not.
func fetch[T any](ctx context.Context, a *Aggregator, source string, fn func(context.Context) (T, error)) (T, error) {
	qctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		v, err := fn(qctx)
		done <- result{v, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-qctx.Done():
		res.err = qctx.Err()
	}
	a.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if res.err == nil {
		a.metrics.DashboardUpstream.WithLabelValues(source, "success").Inc()
		return res.val, nil
	}

	outcome := "error"
	if errors.Is(res.err, context.DeadlineExceeded) {
		outcome = "timeout"
	}
	a.metrics.DashboardUpstream.WithLabelValues(source, outcome).Inc()

	uerr := &UpstreamUnavailableError{Source: source, Err: res.err}
	a.logger.Warn("dashboard section degraded", "source", source, "outcome", outcome, "error", uerr)
	var zero T
	return zero, uerr
}

func validateAlgorithms(algos []AlgorithmInfo) error {
	for i, a := range algos {
		if a.Name == "" {
			return fmt.Errorf("algorithm %d has no name", i)
		}
		if math.IsNaN(a.Accuracy) || math.IsInf(a.Accuracy, 0) {
			return fmt.Errorf("algorithm %s has non-finite accuracy", a.Name)
		}
	}
	return nil
}

// meanAccuracy averages the reported accuracies to one decimal; 0 when empty.
func meanAccuracy(algos []AlgorithmInfo) float64 {
	if len(algos) == 0 {
		return 0
	}
	var sum float64
	for _, a := range algos {
		sum += a.Accuracy
	}
	return math.Round(sum/float64(len(algos))*10) / 10
}

func formatUptime(d time.Duration) string {
	if d <= 0 {
		return "0h"
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
