// Package aggregate reduces windows of telemetry events into dashboard series.
//
// Every reducer is pure: it takes events (ascending by timestamp unless noted)
// and returns a non-nil slice, so empty input encodes as [] rather than null.
package aggregate

import (
	"cmp"
	"slices"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
)

const (
	dateLayout = "2006-01-02"
	unknown    = "unknown"
)

// DailyStarts counts app_start events per UTC date, ascending by date.
func DailyStarts(events []model.Event) []types.DailyCount {
	counts := map[string]int{}
	for _, e := range events {
		if e.EventName != model.EventAppStart {
			continue
		}
		counts[e.Timestamp.UTC().Format(dateLayout)]++
	}
	out := make([]types.DailyCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, types.DailyCount{Date: d, Count: c})
	}
	slices.SortFunc(out, func(a, b types.DailyCount) int { return cmp.Compare(a.Date, b.Date) })
	return out
}

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -back)
}

// WeeklyTrend buckets app_start events by Monday-based UTC week.
// Users counts distinct devices, Sessions counts events.
func WeeklyTrend(events []model.Event) []types.WeeklyPoint {
	type bucket struct {
		devices  map[string]struct{}
		sessions int
	}
	buckets := map[string]*bucket{}
	for _, e := range events {
		if e.EventName != model.EventAppStart {
			continue
		}
		key := WeekStart(e.Timestamp).Format(dateLayout)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{devices: map[string]struct{}{}}
			buckets[key] = b
		}
		b.sessions++
		if e.DeviceID != "" {
			b.devices[e.DeviceID] = struct{}{}
		}
	}
	out := make([]types.WeeklyPoint, 0, len(buckets))
	for k, b := range buckets {
		out = append(out, types.WeeklyPoint{Week: k, Users: len(b.devices), Sessions: b.sessions})
	}
	slices.SortFunc(out, func(a, b types.WeeklyPoint) int { return cmp.Compare(a.Week, b.Week) })
	return out
}

// FeatureUsage counts feature_use events by feature name, descending.
func FeatureUsage(events []model.Event) []types.FeatureCount {
	ranked := rankBy(events, model.EventFeatureUse, model.PropFeatureName)
	out := make([]types.FeatureCount, 0, len(ranked))
	for _, kc := range ranked {
		out = append(out, types.FeatureCount{Feature: kc.key, Count: kc.count})
	}
	return out
}

// PageViews counts page_view events by page name, descending.
func PageViews(events []model.Event) []types.PageCount {
	ranked := rankBy(events, model.EventPageView, model.PropPageName)
	out := make([]types.PageCount, 0, len(ranked))
	for _, kc := range ranked {
		out = append(out, types.PageCount{Page: kc.key, Count: kc.count})
	}
	return out
}

func rankBy(events []model.Event, name, prop string) []keyCount {
	counts := map[string]int{}
	for _, e := range events {
		if e.EventName != name {
			continue
		}
		key := e.Prop(prop)
		if key == "" {
			key = unknown
		}
		counts[key]++
	}
	return sortedByCount(counts)
}

type keyCount struct {
	key   string
	count int
}

// sortedByCount orders by count descending, then key ascending.
func sortedByCount(counts map[string]int) []keyCount {
	out := make([]keyCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, keyCount{key: k, count: c})
	}
	slices.SortFunc(out, func(a, b keyCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	return out
}
