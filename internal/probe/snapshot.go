package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pulse/internal/domain/types"
)

// Snapshot is one decoded response from every metric endpoint.
type Snapshot struct {
	Overview    types.Overview
	Daily       []types.DailyCount
	Weekly      []types.WeeklyPoint
	Features    []types.FeatureCount
	Pages       []types.PageCount
	OS          []types.OSCount
	Resolutions []types.ResolutionCount
	Cultures    []types.CultureCount
	Versions    []types.VersionCount
	Heatmap     []types.HeatmapCell
	Recent      []types.Activity
	Devices     []types.Device
	Locations   []types.Location
}

type target struct {
	route  string
	window bool
	into   any
	size   func() int
}

func (s *Snapshot) targets() []target {
	return []target{
		{"/api/overview", true, &s.Overview, func() int { return 1 }},
		{"/api/daily-starts", true, &s.Daily, func() int { return len(s.Daily) }},
		{"/api/weekly-trend", true, &s.Weekly, func() int { return len(s.Weekly) }},
		{"/api/feature-usage", true, &s.Features, func() int { return len(s.Features) }},
		{"/api/page-views", true, &s.Pages, func() int { return len(s.Pages) }},
		{"/api/os-distribution", true, &s.OS, func() int { return len(s.OS) }},
		{"/api/screen-resolutions", true, &s.Resolutions, func() int { return len(s.Resolutions) }},
		{"/api/culture-distribution", true, &s.Cultures, func() int { return len(s.Cultures) }},
		{"/api/version-distribution", true, &s.Versions, func() int { return len(s.Versions) }},
		{"/api/hourly-heatmap", true, &s.Heatmap, func() int { return len(s.Heatmap) }},
		{"/api/recent-activity", false, &s.Recent, func() int { return len(s.Recent) }},
		{"/api/devices", true, &s.Devices, func() int { return len(s.Devices) }},
		{"/api/ip-locations", true, &s.Locations, func() int { return len(s.Locations) }},
	}
}

// Fetch requests every endpoint concurrently. A failing endpoint is reported
// in its Result and does not cancel the others.
func Fetch(ctx context.Context, client *HTTPClient, days int) (*Snapshot, []Result) {
	s := &Snapshot{}
	targets := s.targets()
	results := make([]Result, len(targets))

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for i, t := range targets {
		path := t.route
		if t.window {
			path = fmt.Sprintf("%s?days=%d", t.route, days)
		}
		g.Go(func() error {
			start := time.Now()
			status, err := client.GetJSON(ctx, path, t.into)
			r := Result{Route: t.route, Status: status, Duration: time.Since(start), Err: err}
			if err == nil {
				r.Items = t.size()
			}
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return s, results
}
