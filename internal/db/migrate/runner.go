// Package migrate applies the embedded schema migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/okian/pulse/internal/db"
)

// Directions accepted by Run.
const (
	Up   = "up"
	Down = "down"
)

var (
	// ErrNoChange is returned by golang-migrate when the schema is already at the target version.
	ErrNoChange = migrate.ErrNoChange
	// ErrMigrate wraps every failure reported by Run.
	ErrMigrate = errors.New("migration failed")
)

// Run applies every migration in direction against dsn. Reaching the target
// version without work is success.
func Run(dsn, direction string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("%w: database url is not set", ErrMigrate)
	}
	if direction != Up && direction != Down {
		return fmt.Errorf("%w: direction must be %q or %q, got %q", ErrMigrate, Up, Down, direction)
	}

	source, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: source: %w", ErrMigrate, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, ErrNoChange) {
		return fmt.Errorf("%w: %s: %w", ErrMigrate, direction, err)
	}
	return nil
}
