// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/internal/domain/window"
)

// Dependencies required by HTTP handlers. Every metric takes a resolved window.
type Dependencies interface {
	UsageDependencies
	AudienceDependencies
	ActivityDependencies
}

// UsageDependencies backs the usage routes.
type UsageDependencies interface {
	DailyStarts(ctx context.Context, w window.Window) ([]types.DailyCount, error)
	WeeklyTrend(ctx context.Context, w window.Window) ([]types.WeeklyPoint, error)
	FeatureUsage(ctx context.Context, w window.Window) ([]types.FeatureCount, error)
	PageViews(ctx context.Context, w window.Window) ([]types.PageCount, error)
	Overview(ctx context.Context, w window.Window) (types.Overview, error)
}

// AudienceDependencies backs the per-device distribution routes.
type AudienceDependencies interface {
	OSDistribution(ctx context.Context, w window.Window) ([]types.OSCount, error)
	ScreenResolutions(ctx context.Context, w window.Window) ([]types.ResolutionCount, error)
	CultureDistribution(ctx context.Context, w window.Window) ([]types.CultureCount, error)
	VersionDistribution(ctx context.Context, w window.Window) ([]types.VersionCount, error)
	Devices(ctx context.Context, w window.Window) ([]types.Device, error)
}

// ActivityDependencies backs the heatmap, live feed and map routes.
type ActivityDependencies interface {
	HourlyHeatmap(ctx context.Context, w window.Window) ([]types.HeatmapCell, error)
	RecentActivity(ctx context.Context) ([]types.Activity, error)
	IPLocations(ctx context.Context, w window.Window) ([]types.Location, error)
}

// Route paths.
const (
	RouteDailyStarts         = "/api/daily-starts"
	RouteWeeklyTrend         = "/api/weekly-trend"
	RouteFeatureUsage        = "/api/feature-usage"
	RoutePageViews           = "/api/page-views"
	RouteOSDistribution      = "/api/os-distribution"
	RouteScreenResolutions   = "/api/screen-resolutions"
	RouteCultureDistribution = "/api/culture-distribution"
	RouteVersionDistribution = "/api/version-distribution"
	RouteHourlyHeatmap       = "/api/hourly-heatmap"
	RouteRecentActivity      = "/api/recent-activity"
	RouteDevices             = "/api/devices"
	RouteIPLocations         = "/api/ip-locations"
	RouteOverview            = "/api/overview"
	RouteHealth              = "/healthz"
)

// Routes lists every metric route, in dashboard order.
var Routes = []string{
	RouteOverview,
	RouteDailyStarts,
	RouteWeeklyTrend,
	RouteFeatureUsage,
	RoutePageViews,
	RouteOSDistribution,
	RouteScreenResolutions,
	RouteCultureDistribution,
	RouteVersionDistribution,
	RouteHourlyHeatmap,
	RouteRecentActivity,
	RouteDevices,
	RouteIPLocations,
}

const cacheControl = "no-store, no-cache, must-revalidate"

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler   *HealthHandler
	usageHandler    *UsageHandler
	audienceHandler *AudienceHandler
	activityHandler *ActivityHandler
}

// NewServer creates a new API server with all handlers. A nil parser uses the default window rules.
func NewServer(deps Dependencies, windows *window.Parser) *Server {
	if windows == nil {
		windows = window.NewParser()
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		usageHandler:    NewUsageHandler(deps, windows),
		audienceHandler: NewAudienceHandler(deps, windows),
		activityHandler: NewActivityHandler(deps, windows),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc(RouteHealth, MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))

	mux.HandleFunc(RouteOverview, MetricsMiddleware(s.usageHandler.HandleOverview, "overview"))
	mux.HandleFunc(RouteDailyStarts, MetricsMiddleware(s.usageHandler.HandleDailyStarts, "daily-starts"))
	mux.HandleFunc(RouteWeeklyTrend, MetricsMiddleware(s.usageHandler.HandleWeeklyTrend, "weekly-trend"))
	mux.HandleFunc(RouteFeatureUsage, MetricsMiddleware(s.usageHandler.HandleFeatureUsage, "feature-usage"))
	mux.HandleFunc(RoutePageViews, MetricsMiddleware(s.usageHandler.HandlePageViews, "page-views"))

	mux.HandleFunc(RouteOSDistribution, MetricsMiddleware(s.audienceHandler.HandleOSDistribution, "os-distribution"))
	mux.HandleFunc(RouteScreenResolutions, MetricsMiddleware(s.audienceHandler.HandleScreenResolutions, "screen-resolutions"))
	mux.HandleFunc(RouteCultureDistribution, MetricsMiddleware(s.audienceHandler.HandleCultureDistribution, "culture-distribution"))
	mux.HandleFunc(RouteVersionDistribution, MetricsMiddleware(s.audienceHandler.HandleVersionDistribution, "version-distribution"))
	mux.HandleFunc(RouteDevices, MetricsMiddleware(s.audienceHandler.HandleDevices, "devices"))

	mux.HandleFunc(RouteHourlyHeatmap, MetricsMiddleware(s.activityHandler.HandleHourlyHeatmap, "hourly-heatmap"))
	mux.HandleFunc(RouteRecentActivity, MetricsMiddleware(s.activityHandler.HandleRecentActivity, "recent-activity"))
	mux.HandleFunc(RouteIPLocations, MetricsMiddleware(s.activityHandler.HandleIPLocations, "ip-locations"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// serveMetric runs fetch for a GET request and writes its result uncached.
func serveMetric[T any](w http.ResponseWriter, r *http.Request, metric string, fetch func(ctx context.Context) (T, error)) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", cacheControl)
	out, err := fetch(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%w: %s", ErrQuery, metric))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
