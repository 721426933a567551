// Command probe checks a running dashboard service and can seed it with synthetic telemetry.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/probe"
	"github.com/okian/pulse/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run holds the command so deferred cleanup happens before the process exits.
func run(args []string) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	var (
		baseURL = fs.String("url", probe.DefaultBaseURL, "Base URL of the service")
		days    = fs.Int("days", probe.DefaultDays, "Window to request: 7, 30 or 90")
		timeout = fs.Duration("timeout", probe.DefaultTimeout, "HTTP request timeout")
		watch   = fs.Duration("watch", 0, "Poll the recent activity feed at this interval (0 disables)")
		seed    = fs.Int("seed", 0, "Insert this many synthetic events into PULSE_DATABASE_URL first")
		devices = fs.Int("devices", probe.DefaultDevices, "Distinct devices used when seeding")
		verbose = fs.Bool("verbose", false, "Log every endpoint result")
		help    = fs.Bool("help", false, "Show help")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *help {
		probe.ShowHelp()
		return 0
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &probe.Config{
		BaseURL: *baseURL,
		Days:    *days,
		Timeout: *timeout,
		Watch:   *watch,
		Seed:    *seed,
		Devices: *devices,
		Verbose: *verbose,
	}

	var seeder probe.Seeder
	if cfg.Seed > 0 {
		appCfg, err := config.Load(ctx)
		if err != nil {
			os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
			return 1
		}
		cfg.DatabaseURL = appCfg.DatabaseURL
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			os.Stderr.WriteString("failed to open database: " + err.Error() + "\n")
			return 1
		}
		store := repository.NewPostgresStore(db, repository.WithLogger(logger.Named("seed")))
		defer func() { _ = store.Close() }()
		seeder = store
	}

	if err := probe.Run(ctx, cfg, seeder); err != nil {
		os.Stderr.WriteString("probe failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
