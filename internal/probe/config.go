package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL     string        // Base URL of the dashboard service
	Days        int           // Window passed as ?days
	Timeout     time.Duration // HTTP request timeout
	Watch       time.Duration // Live feed poll interval; zero disables watching
	Seed        int           // Number of synthetic events to insert before probing
	Devices     int           // Distinct devices used by the seeder
	DatabaseURL string        // Postgres DSN used by the seeder
	Verbose     bool          // Log every endpoint result
}

// Result is the outcome of fetching one endpoint.
type Result struct {
	Route    string
	Status   int
	Items    int
	Duration time.Duration
	Err      error
}

// Stats holds probe statistics.
type Stats struct {
	EventsSeeded   int
	Endpoints      int
	EndpointErrors int
	Violations     int
	FeedPolls      int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
