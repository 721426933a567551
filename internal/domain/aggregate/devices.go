package aggregate

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
)

var cultureNames = map[string]string{
	"ko-KR": "한국어 (Korea)",
	"en-US": "English (US)",
	"en-GB": "English (UK)",
	"ja-JP": "日本語 (Japan)",
	"zh-CN": "中文 (China)",
	"zh-TW": "中文 (Taiwan)",
	"de-DE": "Deutsch",
	"fr-FR": "Français",
	"es-ES": "Español",
}

var osNames = []struct{ marker, name string }{
	{"Windows NT 10.0", "Windows 10/11"},
	{"Windows NT 6.3", "Windows 8.1"},
	{"Windows NT 6.2", "Windows 8"},
	{"Windows NT 6.1", "Windows 7"},
}

type stamped struct {
	value string
	at    time.Time
}

// LatestPerDevice keeps, for each device, the value of its chronologically
// last event for which value returns a non-empty string. Equal timestamps
// resolve to the later element of events.
func LatestPerDevice(events []model.Event, value func(model.Event) string) map[string]string {
	latest := map[string]stamped{}
	for _, e := range events {
		v := value(e)
		if v == "" || e.DeviceID == "" {
			continue
		}
		if cur, ok := latest[e.DeviceID]; ok && e.Timestamp.Before(cur.at) {
			continue
		}
		latest[e.DeviceID] = stamped{value: v, at: e.Timestamp}
	}
	out := make(map[string]string, len(latest))
	for dev, s := range latest {
		out[dev] = s.value
	}
	return out
}

// SimplifyOS maps Windows NT kernel versions to marketing names.
func SimplifyOS(os string) string {
	for _, n := range osNames {
		if strings.Contains(os, n.marker) {
			return n.name
		}
	}
	return os
}

// CultureDisplayName returns a human label for a culture code, or the code itself.
func CultureDisplayName(code string) string {
	if n, ok := cultureNames[code]; ok {
		return n
	}
	return code
}

// Resolution formats a WxH string, or "" unless both sides are positive.
func Resolution(e model.Event) string {
	if e.ScreenWidth <= 0 || e.ScreenHeight <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", e.ScreenWidth, e.ScreenHeight)
}

// OSDistribution counts devices by their latest simplified OS.
func OSDistribution(events []model.Event) []types.OSCount {
	ranked := countValues(LatestPerDevice(events, func(e model.Event) string { return e.OSVersion }), SimplifyOS)
	out := make([]types.OSCount, 0, len(ranked))
	for _, kc := range ranked {
		out = append(out, types.OSCount{OS: kc.key, Count: kc.count})
	}
	return out
}

// ScreenResolutions counts devices by their latest screen size.
func ScreenResolutions(events []model.Event) []types.ResolutionCount {
	ranked := countValues(LatestPerDevice(events, Resolution), nil)
	out := make([]types.ResolutionCount, 0, len(ranked))
	for _, kc := range ranked {
		out = append(out, types.ResolutionCount{Resolution: kc.key, Count: kc.count})
	}
	return out
}

// CultureDistribution counts devices by their latest culture code.
func CultureDistribution(events []model.Event) []types.CultureCount {
	ranked := countValues(LatestPerDevice(events, func(e model.Event) string { return e.Culture }), nil)
	out := make([]types.CultureCount, 0, len(ranked))
	for _, kc := range ranked {
		out = append(out, types.CultureCount{Culture: kc.key, DisplayName: CultureDisplayName(kc.key), Count: kc.count})
	}
	return out
}

// VersionDistribution counts devices by their latest app version,
// newest version first.
func VersionDistribution(events []model.Event) []types.VersionCount {
	counts := map[string]int{}
	for _, v := range LatestPerDevice(events, func(e model.Event) string { return e.AppVersion }) {
		counts[v]++
	}
	out := make([]types.VersionCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, types.VersionCount{Version: v, Count: c})
	}
	slices.SortFunc(out, func(a, b types.VersionCount) int {
		if c := CompareVersions(b.Version, a.Version); c != 0 {
			return c
		}
		return cmp.Compare(a.Version, b.Version)
	})
	return out
}

// CompareVersions compares dotted versions numerically. Missing or
// non-numeric components count as 0, so "1.2" == "1.2.0" == "1.2.x".
func CompareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := range max(len(pa), len(pb)) {
		if c := cmp.Compare(component(pa, i), component(pb, i)); c != 0 {
			return c
		}
	}
	return 0
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return n
}

// DeviceRoster builds one row per device seen in events, most recently
// active first.
func DeviceRoster(events []model.Event) []types.Device {
	type acc struct {
		dev      types.Device
		last     time.Time
		features map[string]struct{}
	}
	byDevice := map[string]*acc{}
	for _, e := range events {
		if e.DeviceID == "" {
			continue
		}
		a, ok := byDevice[e.DeviceID]
		if !ok {
			a = &acc{dev: types.Device{DeviceID: e.DeviceID}, features: map[string]struct{}{}}
			byDevice[e.DeviceID] = a
		}
		if e.Timestamp.After(a.last) {
			a.last = e.Timestamp
		}
		switch e.EventName {
		case model.EventAppStart:
			a.dev.AppStarts++
		case model.EventFeatureUse:
			if f := e.Prop(model.PropFeatureName); f != "" {
				a.features[f] = struct{}{}
			}
		}
	}

	fields := []struct {
		value func(model.Event) string
		set   func(*types.Device, string)
	}{
		{func(e model.Event) string { return e.MachineName }, func(d *types.Device, v string) { d.MachineName = v }},
		{func(e model.Event) string { return e.IPAddress }, func(d *types.Device, v string) { d.IPAddress = v }},
		{func(e model.Event) string { return e.OSVersion }, func(d *types.Device, v string) { d.OSVersion = v }},
		{func(e model.Event) string { return e.AppVersion }, func(d *types.Device, v string) { d.AppVersion = v }},
		{Resolution, func(d *types.Device, v string) { d.Resolution = v }},
	}
	for _, f := range fields {
		for dev, v := range LatestPerDevice(events, f.value) {
			f.set(&byDevice[dev].dev, v)
		}
	}

	out := make([]types.Device, 0, len(byDevice))
	lastActive := make(map[string]time.Time, len(byDevice))
	for id, a := range byDevice {
		a.dev.FeaturesUsed = make([]string, 0, len(a.features))
		for f := range a.features {
			a.dev.FeaturesUsed = append(a.dev.FeaturesUsed, f)
		}
		slices.Sort(a.dev.FeaturesUsed)
		a.dev.LastActive = formatTime(a.last)
		lastActive[id] = a.last
		out = append(out, a.dev)
	}
	slices.SortFunc(out, func(x, y types.Device) int {
		if c := lastActive[y.DeviceID].Compare(lastActive[x.DeviceID]); c != 0 {
			return c
		}
		return cmp.Compare(x.DeviceID, y.DeviceID)
	})
	return out
}

// countValues counts per-device values, optionally mapping them first.
func countValues(perDevice map[string]string, mapValue func(string) string) []keyCount {
	counts := map[string]int{}
	for _, v := range perDevice {
		if mapValue != nil {
			v = mapValue(v)
		}
		counts[v]++
	}
	return sortedByCount(counts)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
