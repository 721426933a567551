// Command migrate applies the embedded telemetry_events schema to PULSE_DATABASE_URL.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/db/migrate"
	"github.com/okian/pulse/pkg/logger"
)

func main() {
	direction := flag.String("direction", migrate.Up, "Migration direction: up or down")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("migrate")
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Error(ctx, "database_url is not set; export PULSE_DATABASE_URL")
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Error(ctx, "migration failed", logger.String("direction", *direction), logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "migrations applied", logger.String("direction", *direction))
}
