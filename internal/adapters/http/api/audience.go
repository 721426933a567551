package api

import (
	"context"
	"net/http"

	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/internal/domain/window"
)

// AudienceHandler serves the per-device distributions and the device roster.
type AudienceHandler struct {
	deps    AudienceDependencies
	windows *window.Parser
}

// NewAudienceHandler creates a new audience handler.
func NewAudienceHandler(deps AudienceDependencies, windows *window.Parser) *AudienceHandler {
	return &AudienceHandler{deps: deps, windows: windows}
}

// HandleOSDistribution handles GET /api/os-distribution?days= requests.
func (h *AudienceHandler) HandleOSDistribution(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "os-distribution", func(ctx context.Context) ([]types.OSCount, error) {
		return h.deps.OSDistribution(ctx, win)
	})
}

// HandleScreenResolutions handles GET /api/screen-resolutions?days= requests.
func (h *AudienceHandler) HandleScreenResolutions(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "screen-resolutions", func(ctx context.Context) ([]types.ResolutionCount, error) {
		return h.deps.ScreenResolutions(ctx, win)
	})
}

// HandleCultureDistribution handles GET /api/culture-distribution?days= requests.
func (h *AudienceHandler) HandleCultureDistribution(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "culture-distribution", func(ctx context.Context) ([]types.CultureCount, error) {
		return h.deps.CultureDistribution(ctx, win)
	})
}

// HandleVersionDistribution handles GET /api/version-distribution?days= requests.
func (h *AudienceHandler) HandleVersionDistribution(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "version-distribution", func(ctx context.Context) ([]types.VersionCount, error) {
		return h.deps.VersionDistribution(ctx, win)
	})
}

// HandleDevices handles GET /api/devices?days= requests.
func (h *AudienceHandler) HandleDevices(w http.ResponseWriter, r *http.Request) {
	win := h.windows.Parse(r.URL.Query())
	serveMetric(w, r, "devices", func(ctx context.Context) ([]types.Device, error) {
		return h.deps.Devices(ctx, win)
	})
}
