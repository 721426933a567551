package repository

import (
	"context"

	"github.com/okian/pulse/internal/domain/model"
)

// DisabledStore stands in when no backend is configured.
// Reads succeed with no rows so the dashboard renders empty charts.
type DisabledStore struct{}

// NewDisabledStore creates a DisabledStore.
func NewDisabledStore() *DisabledStore { return &DisabledStore{} }

// Events implements Store.
func (DisabledStore) Events(context.Context, Query) ([]model.Event, error) {
	return []model.Event{}, nil
}

// Name implements Store.
func (DisabledStore) Name() string { return "disabled" }

// InsertEvents implements Seeder and always fails.
func (DisabledStore) InsertEvents(context.Context, []model.Event) (int, error) {
	return 0, ErrNotConfigured
}
