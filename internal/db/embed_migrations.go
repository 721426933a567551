// Package db holds the embedded schema for the telemetry events table.
package db

import "embed"

// MigrationFS embeds the SQL migrations applied by cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
