package probe

import (
	"fmt"
	"time"

	"github.com/okian/pulse/internal/domain/aggregate"
)

// Verify checks the response invariants the dashboard relies on and returns
// one error per violation.
func Verify(s *Snapshot) []error {
	var errs []error
	fail := func(route, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvariant, route, fmt.Sprintf(format, args...)))
	}

	for i := 1; i < len(s.Daily); i++ {
		if s.Daily[i-1].Date >= s.Daily[i].Date {
			fail("/api/daily-starts", "dates not ascending at %d (%s, %s)", i, s.Daily[i-1].Date, s.Daily[i].Date)
		}
	}
	for i := 1; i < len(s.Weekly); i++ {
		if s.Weekly[i-1].Week >= s.Weekly[i].Week {
			fail("/api/weekly-trend", "weeks not ascending at %d", i)
		}
	}

	descending := func(route string, counts []int) {
		for i := 1; i < len(counts); i++ {
			if counts[i-1] < counts[i] {
				fail(route, "counts not descending at %d (%d < %d)", i, counts[i-1], counts[i])
				return
			}
		}
	}
	descending("/api/feature-usage", countsOf(s.Features, func(i int) int { return s.Features[i].Count }))
	descending("/api/page-views", countsOf(s.Pages, func(i int) int { return s.Pages[i].Count }))
	descending("/api/os-distribution", countsOf(s.OS, func(i int) int { return s.OS[i].Count }))
	descending("/api/screen-resolutions", countsOf(s.Resolutions, func(i int) int { return s.Resolutions[i].Count }))
	descending("/api/culture-distribution", countsOf(s.Cultures, func(i int) int { return s.Cultures[i].Count }))

	for i := 1; i < len(s.Versions); i++ {
		if aggregate.CompareVersions(s.Versions[i-1].Version, s.Versions[i].Version) < 0 {
			fail("/api/version-distribution", "%s listed before newer %s", s.Versions[i-1].Version, s.Versions[i].Version)
		}
	}

	if len(s.Heatmap) != aggregate.HeatmapCells {
		fail("/api/hourly-heatmap", "%d cells, want %d", len(s.Heatmap), aggregate.HeatmapCells)
	}

	if len(s.Recent) > RecentActivityCap {
		fail("/api/recent-activity", "%d entries, cap is %d", len(s.Recent), RecentActivityCap)
	}
	var prev time.Time
	for i, a := range s.Recent {
		ts, err := time.Parse(time.RFC3339Nano, a.Timestamp)
		if err != nil {
			fail("/api/recent-activity", "bad timestamp %q", a.Timestamp)
			break
		}
		if i > 0 && ts.After(prev) {
			fail("/api/recent-activity", "not newest first at %d", i)
			break
		}
		prev = ts
	}

	seen := make(map[string]bool, len(s.Devices))
	for _, d := range s.Devices {
		if d.FeaturesUsed == nil {
			fail("/api/devices", "device %s has null features_used", d.DeviceID)
		}
		if seen[d.DeviceID] {
			fail("/api/devices", "device %s listed twice", d.DeviceID)
		}
		seen[d.DeviceID] = true
	}

	for _, l := range s.Locations {
		if l.Count < 1 {
			fail("/api/ip-locations", "%s has count %d", l.IP, l.Count)
		}
	}

	total := 0
	for _, d := range s.Daily {
		total += d.Count
	}
	if s.Overview.TotalSessions != total {
		fail("/api/overview", "total_sessions %d, daily starts sum to %d", s.Overview.TotalSessions, total)
	}
	if s.Overview.UniqueDevices != len(s.Devices) {
		fail("/api/overview", "unique_devices %d, roster has %d", s.Overview.UniqueDevices, len(s.Devices))
	}
	return errs
}

func countsOf[T any](items []T, count func(int) int) []int {
	out := make([]int, len(items))
	for i := range items {
		out[i] = count(i)
	}
	return out
}
