package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weathernft-service/internal/adminlog"
	"github.com/couchcryptid/weathernft-service/internal/aggregation"
	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/engine"
	"github.com/couchcryptid/weathernft-service/internal/ledger"
	"github.com/couchcryptid/weathernft-service/internal/nft"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/couchcryptid/weathernft-service/internal/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the engine surface the API exposes. *engine.Engine implements it.
type Service interface {
	GenerateEvent(ctx context.Context, req engine.GenerateRequest) (domain.WeatherEvent, error)
	ListEvents(f ledger.Filter) ledger.Page
	GetEvent(id string) (domain.WeatherEvent, error)
	CaptureEvent(ctx context.Context, id, userID string) (engine.CaptureReceipt, error)
	BoostEvent(ctx context.Context, id string, multiplier float64) (domain.WeatherEvent, error)
	DeactivateEvent(ctx context.Context, id, reason string) (domain.WeatherEvent, error)

	Settings() settings.Snapshot
	UpdateSettings(ctx context.Context, p settings.Patch) (settings.Snapshot, error)
	ToggleAlgorithm(ctx context.Context, name string, enabled bool) (bool, error)
	RetrainAlgorithm(name string) (engine.RetrainJob, error)
	RetrainStatus(jobID string) (engine.RetrainJob, error)
	RetrainJobs() []engine.RetrainJob
	CancelRetrain(jobID string) (engine.RetrainJob, error)
	Models(ctx context.Context) ([]aggregation.AlgorithmView, error)

	Dashboard(ctx context.Context) aggregation.DashboardView
	QueryLogs(q adminlog.Query) adminlog.Result

	ListUsers(f users.Filter) (users.ListResult, error)
	GetUser(id string) (users.User, error)
	AdjustCredits(ctx context.Context, id string, amount int, reason string) (users.User, error)
	SetUserStatus(ctx context.Context, id, status, reason string) (users.User, error)

	TokensByOwner(owner string) []nft.Token
	TransferToken(ctx context.Context, req engine.TransferRequest) (nft.TransferReceipt, error)
	ChainStats() engine.ChainStats

	CurrentWeather(lat, lng float64) (engine.WeatherReport, error)
	MonitoredLocations() []domain.Location
	DewPoint(temperature, humidity float64) (float64, error)
	HeatIndex(temperature, humidity float64) float64
}

// Server exposes the admin API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        Service
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(addr string, svc Service, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/events/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("POST /api/events/{id}/capture", s.handleCapture)

	mux.HandleFunc("GET /api/admin/events", s.handleAdminEvents)
	mux.HandleFunc("POST /api/admin/events/{id}/boost", s.handleBoost)
	mux.HandleFunc("DELETE /api/admin/events/{id}", s.handleDeactivate)
	mux.HandleFunc("GET /api/admin/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/admin/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /api/admin/logs", s.handleLogs)
	mux.HandleFunc("GET /api/admin/users", s.handleListUsers)
	mux.HandleFunc("GET /api/admin/users/{id}", s.handleGetUser)
	mux.HandleFunc("POST /api/admin/users/{id}/credits", s.handleCredits)
	mux.HandleFunc("POST /api/admin/users/{id}/status", s.handleUserStatus)

	mux.HandleFunc("GET /api/ai/models", s.handleModels)
	mux.HandleFunc("POST /api/ai/models/{name}/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/ai/models/{name}/retrain", s.handleRetrain)
	mux.HandleFunc("GET /api/ai/retrain", s.handleRetrainJobs)
	mux.HandleFunc("GET /api/ai/retrain/{jobId}", s.handleRetrainStatus)
	mux.HandleFunc("DELETE /api/ai/retrain/{jobId}", s.handleCancelRetrain)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/nft/owner/{address}", s.handleTokensByOwner)
	mux.HandleFunc("POST /api/nft/transfer", s.handleTransfer)
	mux.HandleFunc("GET /api/stats", s.handleChainStats)

	mux.HandleFunc("GET /api/weather/current/{lat}/{lng}", s.handleCurrentWeather)
	mux.HandleFunc("GET /api/weather/locations/monitored", s.handleMonitored)
	mux.HandleFunc("POST /api/weather/calculate/dew-point", s.handleDewPoint)
	mux.HandleFunc("POST /api/weather/calculate/heat-index", s.handleHeatIndex)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
