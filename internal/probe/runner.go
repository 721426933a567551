// Package probe checks a running dashboard service end to end and can seed
// synthetic telemetry for it.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
)

// Run executes a complete probe: optional seeding, health, every endpoint, the
// invariants, then the optional live feed watch. seeder may be nil when cfg.Seed is 0.
func Run(ctx context.Context, cfg *Config, seeder Seeder) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting dashboard probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("days", cfg.Days),
		logger.Duration("timeout", cfg.Timeout),
		logger.Duration("watch", cfg.Watch),
		logger.Int("seed", cfg.Seed))

	if cfg.Seed > 0 {
		if seeder == nil {
			return errors.New("seeding requested without a database")
		}
		if err := SeedEvents(ctx, cfg, seeder, time.Now(), stats); err != nil {
			return err
		}
	}

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.CheckHealth(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy")

	snap, results := Fetch(ctx, client, cfg.Days)
	var failed []error
	for _, r := range results {
		stats.Endpoints++
		if r.Err != nil {
			stats.EndpointErrors++
			failed = append(failed, r.Err)
			log.Error(ctx, "endpoint failed", logger.String("route", r.Route), logger.Int("status", r.Status), logger.Error(r.Err))
			continue
		}
		if cfg.Verbose {
			log.Info(ctx, "endpoint ok",
				logger.String("route", r.Route),
				logger.Int("items", r.Items),
				logger.Duration("took", r.Duration))
		}
	}

	// Invariants only hold over a complete snapshot.
	if len(failed) == 0 {
		for _, v := range Verify(snap) {
			stats.Violations++
			failed = append(failed, v)
			log.Warn(ctx, "invariant violated", logger.Error(v))
		}
	}

	if cfg.Watch > 0 && len(failed) == 0 {
		stats.FeedPolls = Watch(ctx, client, cfg.Watch, snap.Recent)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	log.Info(ctx, "probe completed successfully")
	return nil
}

// Watch polls the live feed every interval until ctx is done, logging newly
// seen events. It returns the number of polls made.
func Watch(ctx context.Context, client *HTTPClient, interval time.Duration, seed []types.Activity) int {
	log := logger.Get()
	newest := newestTimestamp(seed)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			return polls
		case <-ticker.C:
		}
		polls++

		var feed []types.Activity
		if _, err := client.GetJSON(ctx, "/api/recent-activity", &feed); err != nil {
			if ctx.Err() != nil {
				return polls
			}
			log.Warn(ctx, "live feed poll failed", logger.Error(err))
			continue
		}
		fresh := 0
		for _, a := range feed {
			if ts, err := time.Parse(time.RFC3339Nano, a.Timestamp); err == nil && ts.After(newest) {
				fresh++
			}
		}
		if latest := newestTimestamp(feed); latest.After(newest) {
			newest = latest
		}
		log.Info(ctx, "live feed polled", logger.Int("entries", len(feed)), logger.Int("new", fresh))
	}
}

func newestTimestamp(feed []types.Activity) time.Time {
	var newest time.Time
	for _, a := range feed {
		if ts, err := time.Parse(time.RFC3339Nano, a.Timestamp); err == nil && ts.After(newest) {
			newest = ts
		}
	}
	return newest
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("eventsSeeded", stats.EventsSeeded),
		logger.Int("endpoints", stats.Endpoints),
		logger.Int("endpointErrors", stats.EndpointErrors),
		logger.Int("violations", stats.Violations),
		logger.Int("feedPolls", stats.FeedPolls),
		logger.Duration("duration", stats.Duration))
}
