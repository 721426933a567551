package probe

import "time"

// Defaults for flags left unset.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultDays    = 30
	DefaultTimeout = 30 * time.Second
	DefaultDevices = 25

	// RecentActivityCap is the most entries the live feed may return.
	RecentActivityCap = 50
)
