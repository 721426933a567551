package probe

import (
	"os"
)

// ShowHelp prints usage information for the probe tool.
func ShowHelp() {
	os.Stdout.WriteString(`Pulse Dashboard Probe
=====================

Checks a running dashboard service: health, every metric endpoint in parallel,
and the response invariants the front-end relies on.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -days int
        Window to request: 7, 30 or 90 (default 30)
  -timeout duration
        HTTP request timeout (default 30s)
  -watch duration
        Poll the recent activity feed at this interval until interrupted (default off)
  -seed int
        Insert this many synthetic events into PULSE_DATABASE_URL first (default 0)
  -devices int
        Distinct devices used when seeding (default 25)
  -verbose
        Log every endpoint result
  -help
        Show this help message

Examples:
  # Probe a local service
  go run ./cmd/probe

  # Seed 5000 events, then probe the 7 day window
  PULSE_DATABASE_URL=postgres://localhost/pulse?sslmode=disable go run ./cmd/probe -seed 5000 -days 7

  # Follow the live feed every 30 seconds
  go run ./cmd/probe -watch 30s
`)
}
