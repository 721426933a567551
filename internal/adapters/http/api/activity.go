package api

import (
	"context"
	"net/http"

	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/internal/domain/window"
)

// ActivityHandler serves when and where the app is used.
type ActivityHandler struct {
	deps    ActivityDependencies
	windows *window.Parser
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(deps ActivityDependencies, windows *window.Parser) *ActivityHandler {
	return &ActivityHandler{deps: deps, windows: windows}
}

// HandleHourlyHeatmap handles GET /api/hourly-heatmap?days= requests.
func (h *ActivityHandler) HandleHourlyHeatmap(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "hourly-heatmap", func(ctx context.Context) ([]types.HeatmapCell, error) {
		return h.deps.HourlyHeatmap(ctx, win)
	})
}

// HandleRecentActivity handles GET /api/recent-activity requests. It ignores the window.
func (h *ActivityHandler) HandleRecentActivity(w http.ResponseWriter, r *http.Request) {
	serveMetric(w, r, "recent-activity", h.deps.RecentActivity)
}

// HandleIPLocations handles GET /api/ip-locations?days= requests.
func (h *ActivityHandler) HandleIPLocations(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "ip-locations", func(ctx context.Context) ([]types.Location, error) {
		return h.deps.IPLocations(ctx, win)
	})
}
