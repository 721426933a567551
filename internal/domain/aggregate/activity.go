package aggregate

import (
	"slices"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
)

// Weekdays in heatmap order. Indexes match time.Weekday.
var Weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// HeatmapCells is the fixed size of a heatmap: 7 days x 24 hours.
const HeatmapCells = 7 * 24

const unknownMachine = "Unknown"

// Heatmap buckets every event by weekday and hour in a fixed UTC offset.
// The result always has HeatmapCells entries ordered Sun..Sat, 0..23.
func Heatmap(events []model.Event, offset time.Duration) []types.HeatmapCell {
	var grid [7][24]int
	for _, e := range events {
		local := e.Timestamp.UTC().Add(offset)
		grid[local.Weekday()][local.Hour()]++
	}
	out := make([]types.HeatmapCell, 0, HeatmapCells)
	for d, name := range Weekdays {
		for h := range 24 {
			out = append(out, types.HeatmapCell{Day: name, Hour: h, Count: grid[d][h]})
		}
	}
	return out
}

// RecentActivity formats up to limit events, newest first.
func RecentActivity(events []model.Event, limit int) []types.Activity {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int { return b.Timestamp.Compare(a.Timestamp) })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]types.Activity, 0, len(sorted))
	for _, e := range sorted {
		a := types.Activity{
			EventName:   e.EventName,
			DeviceID:    e.DeviceID,
			MachineName: e.MachineName,
			Timestamp:   formatTime(e.Timestamp),
			AppVersion:  e.AppVersion,
		}
		if a.MachineName == "" {
			a.MachineName = unknownMachine
		}
		if f := e.Prop(model.PropFeatureName); f != "" {
			a.FeatureName = &f
		} else if p := e.Prop(model.PropPageName); p != "" {
			a.FeatureName = &p
		}
		out = append(out, a)
	}
	return out
}

// IPCounts counts events per non-empty IP in first-seen order.
// The returned list holds at most limit addresses when limit > 0.
func IPCounts(events []model.Event, limit int) []types.IPCount {
	index := map[string]int{}
	out := make([]types.IPCount, 0)
	for _, e := range events {
		if e.IPAddress == "" {
			continue
		}
		if i, ok := index[e.IPAddress]; ok {
			out[i].Count++
			continue
		}
		index[e.IPAddress] = len(out)
		out = append(out, types.IPCount{IP: e.IPAddress, Count: 1})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Overview derives the stat cards from daily starts and the number of
// distinct devices active in the same window.
func Overview(daily []types.DailyCount, uniqueDevices, windowDays int) types.Overview {
	ov := types.Overview{UniqueDevices: uniqueDevices, WindowDays: windowDays}
	for _, d := range daily {
		ov.TotalSessions += d.Count
		if d.Count > 0 {
			ov.ActiveDays++
		}
	}
	ov.AvgSessionsPerDay = roundDiv(ov.TotalSessions, max(ov.ActiveDays, 1))
	return ov
}

func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}
