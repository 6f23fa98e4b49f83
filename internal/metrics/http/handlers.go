package metricshttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nimbus-crm/nimbus-crm/internal/metrics"
	"github.com/nimbus-crm/nimbus-crm/internal/platform/cache"
	"github.com/nimbus-crm/nimbus-crm/internal/shared"
)

// MetricsService defines the snapshot contract used by the handler.
type MetricsService interface {
	Snapshot(ctx context.Context, ownerID *int64, weekStart time.Time) (*metrics.Snapshot, error)
	Refresh(ctx context.Context, ownerID int64) error
	RefreshAll(ctx context.Context) error
}

// Handler serves the dashboard metrics API. Snapshots are read-only here;
// writes happen only through the refresh triggers.
type Handler struct {
	logger  *slog.Logger
	service MetricsService
	cache   *cache.Cache
}

// NewHandler constructs the metrics HTTP handler.
func NewHandler(logger *slog.Logger, service MetricsService, c *cache.Cache) *Handler {
	return &Handler{logger: logger, service: service, cache: c}
}

// MountRoutes attaches the metrics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/snapshot", h.getSnapshot)
	r.Post("/refresh", h.triggerRefresh)
	r.Post("/refresh-all", h.triggerRefreshAll)
}

// snapshotResponse decorates a snapshot with display-ready currency strings.
type snapshotResponse struct {
	metrics.Snapshot
	TCVDisplay            string `json:"tcv_display"`
	CurrentQPRevDisplay   string `json:"current_qtr_revenue_display"`
	NextQPRevDisplay      string `json:"next_qtr_revenue_display"`
	TCVVsLastWeekDisplay  string `json:"tcv_vs_last_week_display"`
	TCVVsLastMonthDisplay string `json:"tcv_vs_last_month_display"`
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := parseOwnerID(r.URL.Query().Get("owner_id"))
	if !ok {
		http.Error(w, "invalid owner_id", http.StatusBadRequest)
		return
	}
	week, ok := parseWeek(r.URL.Query().Get("week"))
	if !ok {
		http.Error(w, "invalid week, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	load := func(ctx context.Context) (interface{}, error) {
		snap, err := h.service.Snapshot(ctx, ownerID, week)
		if err != nil {
			return nil, err
		}
		return buildResponse(*snap), nil
	}

	key, err := h.cache.BuildKey(r.Context(), "metrics", "snapshot", ownerToken(ownerID), weekToken(week))
	if err != nil {
		h.logger.Warn("build snapshot cache key", slog.Any("error", err))
	}

	var resp snapshotResponse
	if key != "" {
		err = h.cache.FetchJSON(r.Context(), key, &resp, load)
	} else {
		var value interface{}
		value, err = load(r.Context())
		if err == nil {
			resp = value.(snapshotResponse)
		}
	}
	if err != nil {
		if errors.Is(err, metrics.ErrSnapshotNotFound) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load snapshot", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	OwnerID int64 `json:"owner_id"`
}

func (h *Handler) triggerRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID <= 0 {
		http.Error(w, "owner_id required", http.StatusBadRequest)
		return
	}
	if err := h.service.Refresh(r.Context(), req.OwnerID); err != nil {
		h.logger.Error("trigger refresh", slog.Int64("owner_id", req.OwnerID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshed"})
}

func (h *Handler) triggerRefreshAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshAll(r.Context()); err != nil {
		h.logger.Error("trigger refresh all", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshed"})
}

func buildResponse(snap metrics.Snapshot) snapshotResponse {
	return snapshotResponse{
		Snapshot:              snap,
		TCVDisplay:            shared.FormatUSD(snap.TCV),
		CurrentQPRevDisplay:   shared.FormatUSD(snap.CurrentQuarterRevenue),
		NextQPRevDisplay:      shared.FormatUSD(snap.NextQuarterRevenue),
		TCVVsLastWeekDisplay:  shared.FormatDelta(snap.TCVVsLastWeek),
		TCVVsLastMonthDisplay: shared.FormatDelta(snap.TCVVsLastMonth),
	}
}

func parseOwnerID(raw string) (*int64, bool) {
	if raw == "" || raw == "company" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

func parseWeek(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	week, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return metrics.WeekStart(week), true
}

func ownerToken(ownerID *int64) string {
	if ownerID == nil {
		return "company"
	}
	return strconv.FormatInt(*ownerID, 10)
}

func weekToken(week time.Time) string {
	if week.IsZero() {
		return "current"
	}
	return week.Format("2006-01-02")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
