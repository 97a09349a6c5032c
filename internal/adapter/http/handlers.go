package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/adminlog"
	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/engine"
	"github.com/couchcryptid/weathernft-service/internal/ledger"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/couchcryptid/weathernft-service/internal/users"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// eventList is one page of events.
type eventList struct {
	Events any `json:"events"`
	Count  int `json:"count"`
	Total  int `json:"total"`
	Page   int `json:"page"`
	Limit  int `json:"limit"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req engine.GenerateRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	ev, err := s.svc.GenerateEvent(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, ev)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f, page, limit, err := parseEventFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res := s.svc.ListEvents(f)
	s.ok(w, http.StatusOK, eventList{
		Events: res.Events, Count: len(res.Events), Total: res.Total, Page: page, Limit: limit,
	})
}

func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	f, page, limit, err := parseEventFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res := s.svc.ListEvents(f)
	views := make([]engine.AdminEvent, len(res.Events))
	for i, ev := range res.Events {
		views[i] = engine.NewAdminEvent(ev)
	}
	s.ok(w, http.StatusOK, eventList{
		Events: views, Count: len(views), Total: res.Total, Page: page, Limit: limit,
	})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.svc.GetEvent(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, ev)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &body, false); err != nil {
		s.fail(w, r, err)
		return
	}
	receipt, err := s.svc.CaptureEvent(r.Context(), r.PathValue("id"), body.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, receipt)
}

func (s *Server) handleBoost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BoostMultiplier float64 `json:"boostMultiplier"`
	}
	if err := decodeBody(r, &body, false); err != nil {
		s.fail(w, r, err)
		return
	}
	ev, err := s.svc.BoostEvent(r.Context(), r.PathValue("id"), body.BoostMultiplier)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, engine.NewAdminEvent(ev))
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ev, err := s.svc.DeactivateEvent(r.Context(), r.PathValue("id"), r.URL.Query().Get("reason"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, ev)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, http.StatusOK, s.svc.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := decodeBody(r, &patch, true); err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, snap)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeBody(r, &body, true); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Enabled == nil {
		s.fail(w, r, badRequest("enabled is required"))
		return
	}
	name := r.PathValue("name")
	changed, err := s.svc.ToggleAlgorithm(r.Context(), name, *body.Enabled)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, map[string]any{"algorithm": name, "enabled": *body.Enabled, "changed": changed})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.svc.Models(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, models)
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.RetrainAlgorithm(r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusAccepted, job)
}

func (s *Server) handleRetrainJobs(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, http.StatusOK, s.svc.RetrainJobs())
}

func (s *Server) handleRetrainStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.RetrainStatus(r.PathValue("jobId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, job)
}

func (s *Server) handleCancelRetrain(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.CancelRetrain(r.PathValue("jobId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, job)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.ok(w, http.StatusOK, s.svc.Dashboard(r.Context()))
}

func (s *Server) handleTokensByOwner(w http.ResponseWriter, r *http.Request) {
	s.ok(w, http.StatusOK, s.svc.TokensByOwner(r.PathValue("address")))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req engine.TransferRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	receipt, err := s.svc.TransferToken(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, receipt)
}

func (s *Server) handleChainStats(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, http.StatusOK, s.svc.ChainStats())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var query adminlog.Query
	if v := q.Get("level"); v != "" {
		level, ok := domain.ParseLogLevel(v)
		if !ok {
			s.fail(w, r, badRequest("invalid level %q", v))
			return
		}
		query.Level = &level
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.fail(w, r, badRequest("invalid since %q: want RFC 3339", v))
			return
		}
		query.Since = since
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	query.Limit = limit
	s.ok(w, http.StatusOK, s.svc.QueryLogs(query))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.ListUsers(users.Filter{
		Status: q.Get("status"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Limit:  limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, res)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.GetUser(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, u)
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount *int   `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body, true); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Amount == nil {
		s.fail(w, r, badRequest("amount is required"))
		return
	}
	u, err := s.svc.AdjustCredits(r.Context(), r.PathValue("id"), *body.Amount, body.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, u)
}

func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body, true); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.svc.SetUserStatus(r.Context(), r.PathValue("id"), body.Status, body.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, u)
}

func (s *Server) handleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.PathValue("lat"), 64)
	if err != nil {
		s.fail(w, r, badRequest("invalid lat %q", r.PathValue("lat")))
		return
	}
	lng, err := strconv.ParseFloat(r.PathValue("lng"), 64)
	if err != nil {
		s.fail(w, r, badRequest("invalid lng %q", r.PathValue("lng")))
		return
	}
	report, err := s.svc.CurrentWeather(lat, lng)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, report)
}

func (s *Server) handleMonitored(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, http.StatusOK, s.svc.MonitoredLocations())
}

type comfortRequest struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

func (c comfortRequest) validate() error {
	if c.Temperature == nil || c.Humidity == nil {
		return badRequest("temperature and humidity are required")
	}
	return nil
}

func (s *Server) handleDewPoint(w http.ResponseWriter, r *http.Request) {
	var req comfortRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	dp, err := s.svc.DewPoint(*req.Temperature, *req.Humidity)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, map[string]any{
		"temperature": *req.Temperature, "humidity": *req.Humidity, "dewPoint": dp,
	})
}

func (s *Server) handleHeatIndex(w http.ResponseWriter, r *http.Request) {
	var req comfortRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, map[string]any{
		"temperature": *req.Temperature,
		"humidity":    *req.Humidity,
		"heatIndex":   s.svc.HeatIndex(*req.Temperature, *req.Humidity),
	})
}

// parseEventFilter reads status, rarity, algorithm, page and limit.
func parseEventFilter(r *http.Request) (f ledger.Filter, page, limit int, err error) {
	q := r.URL.Query()

	switch status := q.Get("status"); status {
	case "", ledger.StatusAll, ledger.StatusActive, ledger.StatusInactive:
		f.Status = status
	default:
		return f, 0, 0, badRequest("invalid status %q", status)
	}
	if v := q.Get("rarity"); v != "" {
		tier, err := domain.ParseRarity(v)
		if err != nil {
			return f, 0, 0, err
		}
		f.Rarity = tier
	}
	f.Algorithm = q.Get("algorithm")

	if page, err = intParam(q.Get("page"), 1); err != nil {
		return f, 0, 0, err
	}
	if limit, err = intParam(q.Get("limit"), defaultPageSize); err != nil {
		return f, 0, 0, err
	}
	page = max(page, 1)
	limit = min(max(limit, 1), maxPageSize)
	f.Offset = (page - 1) * limit
	f.Limit = limit
	return f, page, limit, nil
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid integer %q", v)
	}
	return n, nil
}
