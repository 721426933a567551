// Package repository reads telemetry events from the backing store.
package repository

import (
	"context"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/metrics"
)

// Table holding the events.
const Table = "telemetry_events"

// Columns in select order.
var Columns = []string{
	"id", "event_name", "device_id", "session_id", "timestamp", "properties",
	"os_version", "app_version", "screen_width", "screen_height",
	"culture", "machine_name", "ip_address", "created_at",
}

// Query selects a time-windowed slice of events.
type Query struct {
	// EventName filters on event_name when non-empty.
	EventName string
	// Since is inclusive, Until exclusive. Zero values are unbounded.
	Since time.Time
	Until time.Time
	// Descending orders newest first; the default is oldest first.
	Descending bool
	// Limit caps the number of rows; 0 means no cap.
	Limit int
	// RequireIP drops rows without an ip_address.
	RequireIP bool
}

// direction is the sort direction for timestamp and its id tiebreaker.
// Ties must sort the same way on every page or offset paging skips rows.
func (q Query) direction() string {
	if q.Descending {
		return "desc"
	}
	return "asc"
}

// Store provides read access to telemetry events.
type Store interface {
	// Events returns the rows matching q ordered by timestamp, then id.
	Events(ctx context.Context, q Query) ([]model.Event, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// Seeder writes synthetic events. Only the SQL store implements it.
type Seeder interface {
	InsertEvents(ctx context.Context, events []model.Event) (int, error)
}

func observe(store string, q Query, start time.Time, rows int, err error) {
	if err != nil {
		metrics.RecordBackendError(store)
		return
	}
	metrics.RecordBackendQuery(store, q.EventName, float64(time.Since(start).Microseconds())/1000, rows)
}
