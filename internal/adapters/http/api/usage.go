package api

import (
	"context"
	"net/http"

	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/internal/domain/window"
)

// UsageHandler serves app starts, the weekly trend, feature and page rankings, and the overview cards.
type UsageHandler struct {
	deps    UsageDependencies
	windows *window.Parser
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(deps UsageDependencies, windows *window.Parser) *UsageHandler {
	return &UsageHandler{deps: deps, windows: windows}
}

// HandleDailyStarts handles GET /api/daily-starts?days=&offset= requests.
func (h *UsageHandler) HandleDailyStarts(w http.ResponseWriter, r *http.Request) {
	win := h.windows.ParseWithOffset(r.URL.Query())
	serveMetric(w, r, "daily-starts", func(ctx context.Context) ([]types.DailyCount, error) {
		return h.deps.DailyStarts(ctx, win)
	})
}

// HandleWeeklyTrend handles GET /api/weekly-trend?days= requests.
// The window is widened to whole weeks.
func (h *UsageHandler) HandleWeeklyTrend(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Weekly(r.URL.Query())
	serveMetric(w, r, "weekly-trend", func(ctx context.Context) ([]types.WeeklyPoint, error) {
		return h.deps.WeeklyTrend(ctx, win)
	})
}

// HandleFeatureUsage handles GET /api/feature-usage?days= requests.
func (h *UsageHandler) HandleFeatureUsage(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "feature-usage", func(ctx context.Context) ([]types.FeatureCount, error) {
		return h.deps.FeatureUsage(ctx, win)
	})
}

// HandlePageViews handles GET /api/page-views?days= requests.
func (h *UsageHandler) HandlePageViews(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "page-views", func(ctx context.Context) ([]types.PageCount, error) {
		return h.deps.PageViews(ctx, win)
	})
}

// HandleOverview handles GET /api/overview?days=&offset= requests.
func (h *UsageHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	win := h.windows.ParseWithOffset(r.URL.Query())
	serveMetric(w, r, "overview", func(ctx context.Context) (types.Overview, error) {
		return h.deps.Overview(ctx, win)
	})
}
