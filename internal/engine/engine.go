// Package engine is the service facade over the event ledger, settings,
// users and admin log.
//
// Every mutating operation appends exactly one admin log entry: info on
// success, warning on a rejection, error on an internal failure. Reads never
// log. Downstream sinks (event publisher, archive, settings repository) are
// best effort: they run after the state change, outside any store lock, and
// their failures never fail the operation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/adminlog"
	"github.com/couchcryptid/weathernft-service/internal/aggregation"
	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/factory"
	"github.com/couchcryptid/weathernft-service/internal/generator"
	"github.com/couchcryptid/weathernft-service/internal/ledger"
	"github.com/couchcryptid/weathernft-service/internal/nft"
	"github.com/couchcryptid/weathernft-service/internal/observability"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/couchcryptid/weathernft-service/internal/users"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultSweepInterval   = time.Minute
	DefaultRetrainDuration = 5 * time.Second
	defaultSinkTimeout     = 5 * time.Second
	defaultGeocodeTimeout  = 3 * time.Second
)

// EventPublisher receives ledger transitions, e.g. a Kafka topic.
type EventPublisher interface {
	PublishEvents(ctx context.Context, changes []domain.EventChange) error
}

// EventArchive keeps the latest state of every event, e.g. a Postgres table.
type EventArchive interface {
	SaveEvent(ctx context.Context, ev domain.WeatherEvent) error
}

// SettingsRepository persists the settings across restarts. Load reports
// found=false when nothing has been saved yet.
type SettingsRepository interface {
	Load(ctx context.Context) (snap settings.Snapshot, found bool, err error)
	Save(ctx context.Context, snap settings.Snapshot) error
}

// Geocoder names coordinates outside the monitored locations. found is
// false when there is no populated place at the coordinate.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (loc domain.Location, found bool, err error)
}

// DashboardBuilder composes the admin dashboard and the model listing.
type DashboardBuilder interface {
	Build(ctx context.Context) aggregation.DashboardView
	Algorithms(ctx context.Context) ([]aggregation.AlgorithmView, error)
}

// Deps wires the engine. Publisher, Archive, SettingsRepo, Geocoder and NFT
// may be nil; without NFT paid captures mint nothing.
type Deps struct {
	Generator *generator.Generator
	Factory   *factory.Factory
	Ledger    *ledger.Ledger
	Settings  *settings.Store
	Users     *users.Store
	Logs      *adminlog.Log
	Dashboard DashboardBuilder
	NFT       *nft.Registry

	Publisher    EventPublisher
	Archive      EventArchive
	SettingsRepo SettingsRepository
	Geocoder     Geocoder

	Rand    generator.Rand
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Options tunes background behavior. Zero values use the defaults.
type Options struct {
	SweepInterval   time.Duration
	RetrainDuration time.Duration
	SinkTimeout     time.Duration
	GeocodeTimeout  time.Duration
}

// Engine implements the service operations.
type Engine struct {
	gen       *generator.Generator
	factory   *factory.Factory
	ledger    *ledger.Ledger
	settings  *settings.Store
	users     *users.Store
	logs      *adminlog.Log
	dashboard DashboardBuilder
	nft       *nft.Registry

	publisher    EventPublisher
	archive      EventArchive
	settingsRepo SettingsRepository
	geocoder     Geocoder

	rng     generator.Rand
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options

	limiter *generationLimiter
	retrain *retrainJobs
	sinks   sync.WaitGroup
	saveMu  sync.Mutex
	ready   atomic.Bool
}

// New creates an Engine and hooks the admin log into slog and metrics.
func New(deps Deps, opts Options) *Engine {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.RetrainDuration <= 0 {
		opts.RetrainDuration = DefaultRetrainDuration
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = defaultSinkTimeout
	}
	if opts.GeocodeTimeout <= 0 {
		opts.GeocodeTimeout = defaultGeocodeTimeout
	}

	e := &Engine{
		gen:          deps.Generator,
		factory:      deps.Factory,
		ledger:       deps.Ledger,
		settings:     deps.Settings,
		users:        deps.Users,
		logs:         deps.Logs,
		dashboard:    deps.Dashboard,
		nft:          deps.NFT,
		publisher:    deps.Publisher,
		archive:      deps.Archive,
		settingsRepo: deps.SettingsRepo,
		geocoder:     deps.Geocoder,
		rng:          deps.Rand,
		clock:        deps.Clock,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		opts:         opts,
		retrain:      newRetrainJobs(),
	}
	e.limiter = newGenerationLimiter(e.settings.Get().AISettings.MaxEventsPerHour, e.clock.Now())
	e.logs.OnAppend(e.observeLog)
	return e
}

// CheckReadiness returns nil once the expiry sweep scheduler is running.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("expiry sweep scheduler has not started")
	}
	return nil
}

// Run sweeps expired events on every tick until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := e.clock.NewTicker(e.opts.SweepInterval)
	defer ticker.Stop()

	e.logger.Info("expiry sweep started", "interval", e.opts.SweepInterval)
	e.metrics.SweepRunning.Set(1)
	defer e.metrics.SweepRunning.Set(0)
	e.ready.Store(true)
	defer e.ready.Store(false)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("expiry sweep stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			e.ExpireSweep(ctx)
		}
	}
}

// Close cancels running retraining jobs and waits for in-flight sink writes.
// Each cancelled job gets the same warning entry CancelRetrain writes.
func (e *Engine) Close() {
	for _, job := range e.retrain.stopAll(e.clock.Now().UTC()) {
		e.metrics.RetrainJobs.WithLabelValues(JobCancelled).Inc()
		e.record(domain.LevelWarning, fmt.Sprintf("Retraining cancelled for %s", job.Algorithm), map[string]any{
			"jobId":     job.ID,
			"algorithm": job.Algorithm,
			"reason":    "shutdown",
		})
	}
	e.sinks.Wait()
}

// record appends the single admin log entry for a mutating operation.
func (e *Engine) record(level domain.LogLevel, message string, data map[string]any) {
	e.logs.Append(level, message, data)
}

// recordFailure logs a failed operation at warning for rejections and error
// for anything else, and returns the metric outcome label.
func (e *Engine) recordFailure(message string, err error, data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	data["error"] = err.Error()
	if isRejection(err) {
		e.record(domain.LevelWarning, message, data)
		return "rejected"
	}
	e.record(domain.LevelError, message, data)
	return "error"
}

func isRejection(err error) bool {
	var (
		rejected   *domain.CaptureRejectedError
		notAllowed *domain.BoostNotAllowedError
		notFound   *domain.NotFoundError
		invalid    *domain.ValidationError
		unknown    *domain.UnknownTierError
		humidity   *domain.InvalidHumidityError
	)
	switch {
	case errors.As(err, &rejected), errors.As(err, &notAllowed), errors.As(err, &notFound),
		errors.As(err, &invalid), errors.As(err, &unknown), errors.As(err, &humidity):
		return true
	case errors.Is(err, domain.ErrNoAlgorithmAvailable), errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrInsufficientCredits), errors.Is(err, domain.ErrRetrainInProgress),
		errors.Is(err, domain.ErrJobFinished), errors.Is(err, domain.ErrNotTokenOwner):
		return true
	}
	return false
}

// observeLog mirrors admin log entries into slog and metrics.
func (e *Engine) observeLog(entry domain.AdminLogEntry) {
	e.metrics.AdminLogEntries.WithLabelValues(string(entry.Level)).Inc()

	level := slog.LevelInfo
	switch entry.Level {
	case domain.LevelWarning:
		level = slog.LevelWarn
	case domain.LevelError:
		level = slog.LevelError
	}
	e.logger.Log(context.Background(), level, entry.Message, "admin_log_id", entry.ID, "data", entry.Data)
}

// emit hands ledger transitions to the publisher and archive in the
// background. Failures are logged and counted, never returned.
func (e *Engine) emit(ctx context.Context, kind domain.ChangeKind, events ...domain.WeatherEvent) {
	e.metrics.ActiveEvents.Set(float64(e.ledger.Stats().Active))
	if len(events) == 0 || (e.publisher == nil && e.archive == nil) {
		return
	}

	now := e.clock.Now().UTC()
	changes := make([]domain.EventChange, len(events))
	for i, ev := range events {
		changes[i] = domain.EventChange{Kind: kind, Event: ev, OccurredAt: now}
	}

	e.sinks.Add(1)
	go func() {
		defer e.sinks.Done()
		sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.SinkTimeout)
		defer cancel()

		if e.publisher != nil {
			err := e.publisher.PublishEvents(sinkCtx, changes)
			e.sinkOutcome("kafka", err, "kind", kind, "count", len(changes))
		}
		if e.archive != nil {
			for _, ev := range events {
				err := e.archive.SaveEvent(sinkCtx, ev)
				e.sinkOutcome("postgres", err, "event_id", ev.EventID)
			}
		}
	}()
}

// persistSettings saves the current settings through the repository, if
// any. Saves are serialized and always write the latest snapshot, so a slow
// earlier save cannot overwrite a newer one.
func (e *Engine) persistSettings(ctx context.Context) {
	if e.settingsRepo == nil {
		return
	}
	e.sinks.Add(1)
	go func() {
		defer e.sinks.Done()
		e.saveMu.Lock()
		defer e.saveMu.Unlock()

		sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.SinkTimeout)
		defer cancel()
		e.sinkOutcome("redis", e.settingsRepo.Save(sinkCtx, e.settings.Get()))
	}()
}

func (e *Engine) sinkOutcome(sink string, err error, attrs ...any) {
	if err != nil {
		e.metrics.SinkWrites.WithLabelValues(sink, "error").Inc()
		e.logger.Error("sink write failed", append([]any{"sink", sink, "error", err}, attrs...)...)
		return
	}
	e.metrics.SinkWrites.WithLabelValues(sink, "success").Inc()
}
