// Package service composes the event store, the reducers and geolocation
// into the metric queries served by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pulse/internal/adapters/geo"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/aggregate"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/internal/domain/window"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// Metric names used in logs, metrics and error messages.
const (
	MetricDailyStarts         = "daily-starts"
	MetricWeeklyTrend         = "weekly-trend"
	MetricFeatureUsage        = "feature-usage"
	MetricPageViews           = "page-views"
	MetricOSDistribution      = "os-distribution"
	MetricScreenResolutions   = "screen-resolutions"
	MetricCultureDistribution = "culture-distribution"
	MetricVersionDistribution = "version-distribution"
	MetricHourlyHeatmap       = "hourly-heatmap"
	MetricRecentActivity      = "recent-activity"
	MetricDevices             = "devices"
	MetricIPLocations         = "ip-locations"
	MetricOverview            = "overview"
)

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu sync.Mutex

	store    repository.Store
	resolver geo.Resolver
	closers  []io.Closer

	heatmapOffset time.Duration
	recentLimit   int
	geoLimit      int
	queryTimeout  time.Duration

	started bool
	logger  logger.Logger
}

// New constructs a Service. Without WithStore every query returns empty results.
func New(opts ...Option) *Service {
	s := &Service{
		store:         repository.NewDisabledStore(),
		heatmapOffset: 9 * time.Hour,
		recentLimit:   50,
		geoLimit:      geo.MaxBatch,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = geo.NewClient(geo.WithLogger(s.logger))
	}
	return s
}

// Start logs the wiring. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.String("store", s.store.Name()),
		logger.Duration("heatmapOffset", s.heatmapOffset),
		logger.Int("recentLimit", s.recentLimit),
		logger.Int("geoLimit", s.geoLimit))
	return nil
}

// Stop releases the resources registered with WithCloser.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warn(context.Background(), "close failed", logger.Error(err))
		}
	}
	s.closers = nil
	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

// StoreName reports which backend serves the queries.
func (s *Service) StoreName() string { return s.store.Name() }

func (s *Service) fetch(ctx context.Context, metric string, q repository.Query) ([]model.Event, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	events, err := s.store.Events(ctx, q)
	if err != nil {
		s.logger.Error(ctx, "event query failed",
			logger.String("metric", metric),
			logger.String("store", s.store.Name()),
			logger.Error(err))
		return nil, fmt.Errorf("%s: %w", metric, err)
	}
	return events, nil
}

func windowQuery(w window.Window, eventName string) repository.Query {
	return repository.Query{EventName: eventName, Since: w.Since, Until: w.Until}
}

func record[T any](metric string, out []T) []T {
	metrics.UpdateAggregateResultSize(metric, len(out))
	return out
}

// DailyStarts counts app starts per UTC day.
func (s *Service) DailyStarts(ctx context.Context, w window.Window) ([]types.DailyCount, error) {
	events, err := s.fetch(ctx, MetricDailyStarts, windowQuery(w, model.EventAppStart))
	if err != nil {
		return nil, err
	}
	return record(MetricDailyStarts, aggregate.DailyStarts(events)), nil
}

// WeeklyTrend reports distinct users and sessions per Monday-based week.
func (s *Service) WeeklyTrend(ctx context.Context, w window.Window) ([]types.WeeklyPoint, error) {
	events, err := s.fetch(ctx, MetricWeeklyTrend, windowQuery(w, model.EventAppStart))
	if err != nil {
		return nil, err
	}
	return record(MetricWeeklyTrend, aggregate.WeeklyTrend(events)), nil
}

// FeatureUsage ranks features by use.
func (s *Service) FeatureUsage(ctx context.Context, w window.Window) ([]types.FeatureCount, error) {
	events, err := s.fetch(ctx, MetricFeatureUsage, windowQuery(w, model.EventFeatureUse))
	if err != nil {
		return nil, err
	}
	return record(MetricFeatureUsage, aggregate.FeatureUsage(events)), nil
}

// PageViews ranks pages by views.
func (s *Service) PageViews(ctx context.Context, w window.Window) ([]types.PageCount, error) {
	events, err := s.fetch(ctx, MetricPageViews, windowQuery(w, model.EventPageView))
	if err != nil {
		return nil, err
	}
	return record(MetricPageViews, aggregate.PageViews(events)), nil
}

// OSDistribution counts devices per operating system.
func (s *Service) OSDistribution(ctx context.Context, w window.Window) ([]types.OSCount, error) {
	events, err := s.fetch(ctx, MetricOSDistribution, windowQuery(w, model.EventAppStart))
	if err != nil {
		return nil, err
	}
	return record(MetricOSDistribution, aggregate.OSDistribution(events)), nil
}

// ScreenResolutions counts devices per screen size.
func (s *Service) ScreenResolutions(ctx context.Context, w window.Window) ([]types.ResolutionCount, error) {
	events, err := s.fetch(ctx, MetricScreenResolutions, windowQuery(w, model.EventAppStart))
	if err != nil {
		return nil, err
	}
	return record(MetricScreenResolutions, aggregate.ScreenResolutions(events)), nil
}

// CultureDistribution counts devices per culture code.
func (s *Service) CultureDistribution(ctx context.Context, w window.Window) ([]types.CultureCount, error) {
	events, err := s.fetch(ctx, MetricCultureDistribution, windowQuery(w, model.EventAppStart))
	if err != nil {
		return nil, err
	}
	return record(MetricCultureDistribution, aggregate.CultureDistribution(events)), nil
}

// VersionDistribution counts devices per app version, newest first.
func (s *Service) VersionDistribution(ctx context.Context, w window.Window) ([]types.VersionCount, error) {
	events, err := s.fetch(ctx, MetricVersionDistribution, windowQuery(w, model.EventAppStart))
	if err != nil {
		return nil, err
	}
	return record(MetricVersionDistribution, aggregate.VersionDistribution(events)), nil
}

// HourlyHeatmap buckets every event by weekday and hour.
func (s *Service) HourlyHeatmap(ctx context.Context, w window.Window) ([]types.HeatmapCell, error) {
	events, err := s.fetch(ctx, MetricHourlyHeatmap, windowQuery(w, ""))
	if err != nil {
		return nil, err
	}
	return record(MetricHourlyHeatmap, aggregate.Heatmap(events, s.heatmapOffset)), nil
}

// RecentActivity returns the newest events regardless of window.
func (s *Service) RecentActivity(ctx context.Context) ([]types.Activity, error) {
	events, err := s.fetch(ctx, MetricRecentActivity, repository.Query{Descending: true, Limit: s.recentLimit})
	if err != nil {
		return nil, err
	}
	return record(MetricRecentActivity, aggregate.RecentActivity(events, s.recentLimit)), nil
}

// Devices builds the device roster.
func (s *Service) Devices(ctx context.Context, w window.Window) ([]types.Device, error) {
	events, err := s.fetch(ctx, MetricDevices, windowQuery(w, ""))
	if err != nil {
		return nil, err
	}
	return record(MetricDevices, aggregate.DeviceRoster(events)), nil
}

// IPLocations geolocates the addresses seen in the window.
func (s *Service) IPLocations(ctx context.Context, w window.Window) ([]types.Location, error) {
	q := windowQuery(w, "")
	q.RequireIP = true
	events, err := s.fetch(ctx, MetricIPLocations, q)
	if err != nil {
		return nil, err
	}

	counts := aggregate.IPCounts(events, s.geoLimit)
	if len(counts) == 0 {
		return record(MetricIPLocations, []types.Location{}), nil
	}
	ips := make([]string, len(counts))
	byIP := make(map[string]int, len(counts))
	for i, c := range counts {
		ips[i] = c.IP
		byIP[c.IP] = c.Count
	}

	results, err := s.resolver.Lookup(ctx, ips)
	if err != nil {
		s.logger.Error(ctx, "geolocation failed",
			logger.String("metric", MetricIPLocations),
			logger.Int("ips", len(ips)),
			logger.Error(err))
		return nil, fmt.Errorf("%s: %w", MetricIPLocations, err)
	}

	out := make([]types.Location, 0, len(results))
	for _, r := range results {
		n := byIP[r.IP]
		if n == 0 {
			n = 1
		}
		out = append(out, types.Location{
			IP: r.IP, Lat: r.Lat, Lon: r.Lon, City: r.City, RegionName: r.RegionName, Count: n,
		})
	}
	return record(MetricIPLocations, out), nil
}

// Overview computes the stat cards, fetching daily starts and the roster concurrently.
func (s *Service) Overview(ctx context.Context, w window.Window) (types.Overview, error) {
	var (
		daily   []types.DailyCount
		devices []types.Device
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.DailyStarts(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		devices, err = s.Devices(gctx, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.Overview{}, fmt.Errorf("%s: %w", MetricOverview, err)
	}
	return aggregate.Overview(daily, len(devices), w.Days), nil
}
