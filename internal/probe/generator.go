package probe

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

// Pools the synthetic devices draw from.
var (
	osVersions  = []string{"Microsoft Windows NT 10.0.22631.0", "Microsoft Windows NT 10.0.19045.0", "Microsoft Windows NT 6.1.7601.0", "macOS 14.4"}
	appVersions = []string{"1.9.9", "2.0.0", "2.0.10", "2.1.0"}
	cultures    = []string{"ko-KR", "en-US", "ja-JP", "zh-CN", "de-DE"}
	screens     = [][2]int{{1920, 1080}, {2560, 1440}, {1366, 768}, {3840, 2160}}
	features    = []string{"export", "import", "search", "print", "sync", "share"}
	pages       = []string{"home", "settings", "reports", "editor", "about"}
)

// Event mix in percent: app starts, feature uses, page views; the rest are errors.
const (
	appStartShare   = 40
	featureUseShare = 35
	pageViewShare   = 20
)

type device struct {
	id, machine, os, version, culture, ip string
	width, height                         int
}

// Seeder inserts synthetic events.
type Seeder interface {
	InsertEvents(ctx context.Context, events []model.Event) (int, error)
}

// GenerateEvents creates n events spread over the days before now across the given number of devices.
func GenerateEvents(rng *rand.Rand, n, devices, days int, now time.Time) []model.Event {
	if n <= 0 {
		return []model.Event{}
	}
	devices = max(devices, 1)
	days = max(days, 1)

	fleet := make([]device, devices)
	for i := range fleet {
		s := screens[rng.IntN(len(screens))]
		fleet[i] = device{
			id:      uuid.NewString(),
			machine: fmt.Sprintf("DESKTOP-%04d", i+1),
			os:      osVersions[rng.IntN(len(osVersions))],
			version: appVersions[rng.IntN(len(appVersions))],
			culture: cultures[rng.IntN(len(cultures))],
			ip:      fmt.Sprintf("203.0.113.%d", 1+rng.IntN(254)),
			width:   s[0],
			height:  s[1],
		}
	}

	span := time.Duration(days) * 24 * time.Hour
	events := make([]model.Event, n)
	for i := range events {
		d := fleet[rng.IntN(len(fleet))]
		at := now.Add(-time.Duration(rng.Int64N(int64(span)))).UTC()
		e := model.Event{
			ID:           uuid.NewString(),
			DeviceID:     d.id,
			SessionID:    d.id[:8] + at.Format("-20060102"),
			Timestamp:    at,
			Properties:   model.Properties{},
			OSVersion:    d.os,
			AppVersion:   d.version,
			ScreenWidth:  d.width,
			ScreenHeight: d.height,
			Culture:      d.culture,
			MachineName:  d.machine,
			IPAddress:    d.ip,
		}
		switch roll := rng.IntN(100); {
		case roll < appStartShare:
			e.EventName = model.EventAppStart
		case roll < appStartShare+featureUseShare:
			e.EventName = model.EventFeatureUse
			e.Properties[model.PropFeatureName] = features[rng.IntN(len(features))]
		case roll < appStartShare+featureUseShare+pageViewShare:
			e.EventName = model.EventPageView
			e.Properties[model.PropPageName] = pages[rng.IntN(len(pages))]
		default:
			e.EventName = model.EventError
			e.Properties["message"] = "synthetic failure"
		}
		events[i] = e
	}
	return events
}

// SeedEvents generates and inserts cfg.Seed events.
func SeedEvents(ctx context.Context, cfg *Config, seeder Seeder, now time.Time, stats *Stats) error {
	rng := rand.New(rand.NewPCG(uint64(now.UnixNano()), uint64(cfg.Seed)))
	events := GenerateEvents(rng, cfg.Seed, cfg.Devices, cfg.Days, now)

	logger.Get().Info(ctx, "seeding synthetic events",
		logger.Int("events", len(events)),
		logger.Int("devices", cfg.Devices),
		logger.Int("days", cfg.Days))

	n, err := seeder.InsertEvents(ctx, events)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	stats.EventsSeeded = n
	return nil
}
