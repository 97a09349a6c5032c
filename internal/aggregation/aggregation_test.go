package aggregation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/adminlog"
	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/ledger"
	"github.com/couchcryptid/weathernft-service/internal/observability"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/couchcryptid/weathernft-service/internal/users"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2025, time.June, 21, 12, 0, 0, 0, time.UTC)
	errRefuse = errors.New("connection refused")
)

type fakeAI struct {
	stats AIStats
	err   error
}

func (f fakeAI) AIStats(context.Context) (AIStats, error) { return f.stats, f.err }

type fakeAlgorithms struct {
	list []AlgorithmInfo
	err  error
}

func (f fakeAlgorithms) Algorithms(context.Context) ([]AlgorithmInfo, error) { return f.list, f.err }

type fakeEvents struct {
	count int
	err   error
}

func (f fakeEvents) ActiveEventCount(context.Context) (int, error) { return f.count, f.err }

type fakeChain struct {
	status ChainStatus
	err    error
}

func (f fakeChain) ChainHealth(context.Context) (ChainStatus, error) { return f.status, f.err }

// blockingChain ignores its context and never answers.
type blockingChain struct{ release chan struct{} }

func (b blockingChain) ChainHealth(context.Context) (ChainStatus, error) {
	<-b.release
	return ChainStatus{}, nil
}

type testEnv struct {
	deps    Deps
	metrics *observability.Metrics
	clock   *clockwork.FakeClock
	log     *adminlog.Log
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	log := adminlog.New(100, clock)
	for i := range 12 {
		log.Append(domain.LevelInfo, "entry", i)
	}
	return &testEnv{
		clock:   clock,
		log:     log,
		metrics: observability.NewMetricsForTesting(),
		deps: Deps{
			AI: fakeAI{stats: AIStats{TotalEvents: 1234, SystemUptime: 7*time.Hour + 59*time.Minute}},
			Algorithms: fakeAlgorithms{list: []AlgorithmInfo{
				{Name: "ThermalDrift-v2", Accuracy: 94.2},
				{Name: "StormChaser-v4", Accuracy: 97.8},
				{Name: "Experimental-v0", Accuracy: 80.05},
			}},
			Events:   fakeEvents{count: 17},
			Chain:    fakeChain{status: ChainStatus{Uptime: 2*time.Hour + 45*time.Minute}},
			Users:    users.NewStore(clock, users.Seed()),
			Ledger:   ledger.New(clock),
			Logs:     log,
			Settings: settings.NewStore(settings.Default()),
		},
	}
}

func (e *testEnv) aggregator(timeout time.Duration) *Aggregator {
	return New(e.deps, Options{
		Timeout:      timeout,
		AIServiceURL: "http://localhost:3006",
		ChainURL:     "http://localhost:3007",
		Clock:        e.clock,
		StartedAt:    testNow.Add(-5 * time.Minute),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), e.metrics)
}

func TestBuild_AllHealthy(t *testing.T) {
	env := newEnv(t)

	view := env.aggregator(time.Second).Build(context.Background())

	assert.Empty(t, view.Degraded)
	assert.Equal(t, Overview{
		ActiveEvents:      17,
		LocalActiveEvents: 0,
		TotalUsers:        3,
		ActiveUsers:       2,
		AIPredictions:     1234,
		SystemUptimeHours: 7,
		AvgAIAccuracy:     90.7,
	}, view.Overview)

	require.Len(t, view.Services, 3)
	assert.Equal(t, ServiceStatus{Name: "AI Backend", Status: StatusActive, Uptime: "7h", URL: "http://localhost:3006"}, view.Services[0])
	assert.Equal(t, ServiceStatus{Name: "Blockchain", Status: StatusActive, Uptime: "2h 45m", URL: "http://localhost:3007"}, view.Services[1])
	assert.Equal(t, "0h 5m", view.Services[2].Uptime)

	require.Len(t, view.RecentActivity, DefaultRecentActivity)
	assert.Equal(t, 11, view.RecentActivity[0].Data, "most recent first")

	require.Len(t, view.Algorithms, 3)
	assert.True(t, view.Algorithms[0].Enabled)
	assert.False(t, view.Algorithms[2].Enabled)
	assert.Equal(t, testNow.Add(24*time.Hour), view.Algorithms[0].NextRetraining)

	assert.Equal(t, 33, view.UserStats.TotalCredits)
	assert.Equal(t, testNow, view.GeneratedAt)

	assert.InDelta(t, 1.0, testutil.ToFloat64(env.metrics.DashboardUpstream.WithLabelValues(SourceChain, "success")), 1e-9)
}

func TestBuild_AllUpstreamsDown(t *testing.T) {
	env := newEnv(t)
	env.deps.AI = fakeAI{err: errRefuse}
	env.deps.Algorithms = fakeAlgorithms{err: errRefuse}
	env.deps.Events = fakeEvents{err: errRefuse}
	env.deps.Chain = fakeChain{err: errRefuse}

	view := env.aggregator(time.Second).Build(context.Background())

	assert.ElementsMatch(t, []string{SourceAIStats, SourceAlgorithms, SourceEvents, SourceChain}, view.Degraded)
	assert.Equal(t, 0, view.Overview.ActiveEvents)
	assert.Equal(t, 0, view.Overview.AIPredictions)
	assert.Equal(t, 0, view.Overview.SystemUptimeHours)
	assert.Zero(t, view.Overview.AvgAIAccuracy)
	assert.False(t, math.IsNaN(view.Overview.AvgAIAccuracy))
	assert.Empty(t, view.Algorithms)

	assert.Equal(t, StatusInactive, view.Services[0].Status)
	assert.Equal(t, "0h", view.Services[0].Uptime)
	assert.Equal(t, StatusInactive, view.Services[1].Status)
	assert.Equal(t, StatusActive, view.Services[2].Status)

	// local sections are unaffected
	assert.Equal(t, 3, view.Overview.TotalUsers)
	assert.Len(t, view.RecentActivity, DefaultRecentActivity)

	for _, src := range []string{SourceAIStats, SourceAlgorithms, SourceEvents, SourceChain} {
		assert.InDelta(t, 1.0, testutil.ToFloat64(env.metrics.DashboardUpstream.WithLabelValues(src, "error")), 1e-9, src)
	}
}

func TestBuild_EmptyAlgorithmListAveragesToZero(t *testing.T) {
	env := newEnv(t)
	env.deps.Algorithms = fakeAlgorithms{list: []AlgorithmInfo{}}

	view := env.aggregator(time.Second).Build(context.Background())

	assert.Empty(t, view.Degraded)
	assert.Zero(t, view.Overview.AvgAIAccuracy)
}

func TestBuild_MalformedPayloadsDegrade(t *testing.T) {
	env := newEnv(t)
	env.deps.AI = fakeAI{stats: AIStats{TotalEvents: -1}}
	env.deps.Algorithms = fakeAlgorithms{list: []AlgorithmInfo{{Name: "X", Accuracy: math.NaN()}}}
	env.deps.Events = fakeEvents{count: -3}

	view := env.aggregator(time.Second).Build(context.Background())

	assert.ElementsMatch(t, []string{SourceAIStats, SourceAlgorithms, SourceEvents}, view.Degraded)
	assert.Zero(t, view.Overview.AvgAIAccuracy)
	assert.Zero(t, view.Overview.ActiveEvents)
	assert.Equal(t, StatusActive, view.Services[1].Status)
}

func TestBuild_SlowUpstreamTimesOutAlone(t *testing.T) {
	env := newEnv(t)
	release := make(chan struct{})
	defer close(release)
	env.deps.Chain = blockingChain{release: release}

	start := time.Now()
	view := env.aggregator(50 * time.Millisecond).Build(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{SourceChain}, view.Degraded)
	assert.Equal(t, 17, view.Overview.ActiveEvents)
	assert.InDelta(t, 1.0, testutil.ToFloat64(env.metrics.DashboardUpstream.WithLabelValues(SourceChain, "timeout")), 1e-9)
}

func TestBuild_CancelledCallerStillGetsView(t *testing.T) {
	env := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	view := env.aggregator(time.Second).Build(ctx)

	require.Len(t, view.Services, 3)
	assert.Equal(t, 3, view.Overview.TotalUsers)
}

func TestAlgorithms(t *testing.T) {
	env := newEnv(t)

	views, err := env.aggregator(time.Second).Algorithms(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, AlgorithmView{
		Name:           "StormChaser-v4",
		Accuracy:       97.8,
		Enabled:        true,
		NextRetraining: testNow.Add(24 * time.Hour),
	}, views[1])
	assert.False(t, views[2].Enabled)
	assert.Equal(t, 12, env.log.Len(), "reads never log")
}

func TestAlgorithms_UpstreamFailure(t *testing.T) {
	env := newEnv(t)
	env.deps.Algorithms = fakeAlgorithms{err: errRefuse}

	_, err := env.aggregator(time.Second).Algorithms(context.Background())
	var unavailable *UpstreamUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, SourceAlgorithms, unavailable.Source)
	assert.InDelta(t, 1.0, testutil.ToFloat64(env.metrics.DashboardUpstream.WithLabelValues(SourceAlgorithms, "error")), 1e-9)

	env.deps.Algorithms = fakeAlgorithms{list: []AlgorithmInfo{{Name: ""}}}
	_, err = env.aggregator(time.Second).Algorithms(context.Background())
	require.ErrorAs(t, err, &unavailable)
}

func TestUpstreamUnavailableError(t *testing.T) {
	err := &UpstreamUnavailableError{Source: SourceEvents, Err: errRefuse}
	assert.ErrorIs(t, err, errRefuse)
	assert.Contains(t, err.Error(), "events")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0h", formatUptime(0))
	assert.Equal(t, "3h", formatUptime(3*time.Hour))
	assert.Equal(t, "0h 5m", formatUptime(5*time.Minute+30*time.Second))
	assert.Equal(t, "26h 1m", formatUptime(26*time.Hour+time.Minute))
}
