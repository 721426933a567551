// Package types contains the result records returned by the dashboard API.
// JSON field names are the wire contract consumed by the front-end.
package types

// DailyCount is the number of app starts on one UTC date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// WeeklyPoint summarises one Monday-based week.
type WeeklyPoint struct {
	Week     string `json:"week"`
	Users    int    `json:"users"`
	Sessions int    `json:"sessions"`
}

// FeatureCount is the usage count of one feature.
type FeatureCount struct {
	Feature string `json:"feature"`
	Count   int    `json:"count"`
}

// PageCount is the view count of one page.
type PageCount struct {
	Page  string `json:"page"`
	Count int    `json:"count"`
}

// OSCount is the number of devices on one (simplified) OS.
type OSCount struct {
	OS    string `json:"os"`
	Count int    `json:"count"`
}

// ResolutionCount is the number of devices with one WxH screen.
type ResolutionCount struct {
	Resolution string `json:"resolution"`
	Count      int    `json:"count"`
}

// CultureCount is the number of devices with one culture code.
type CultureCount struct {
	Culture     string `json:"culture"`
	DisplayName string `json:"displayName"`
	Count       int    `json:"count"`
}

// VersionCount is the number of devices on one app version.
type VersionCount struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

// HeatmapCell counts events in one weekday/hour slot.
type HeatmapCell struct {
	Day   string `json:"day"`
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
}

// Activity is one entry of the live feed.
type Activity struct {
	EventName   string  `json:"event_name"`
	DeviceID    string  `json:"device_id"`
	MachineName string  `json:"machine_name"`
	Timestamp   string  `json:"timestamp"`
	FeatureName *string `json:"feature_name"`
	AppVersion  string  `json:"app_version"`
}

// Device is one row of the device roster.
type Device struct {
	DeviceID     string   `json:"device_id"`
	MachineName  string   `json:"machine_name"`
	IPAddress    string   `json:"ip_address"`
	AppStarts    int      `json:"app_starts"`
	LastActive   string   `json:"last_active"`
	OSVersion    string   `json:"os_version"`
	AppVersion   string   `json:"app_version"`
	Resolution   string   `json:"resolution"`
	FeaturesUsed []string `json:"features_used"`
}

// Location is a geolocated IP with its event count.
type Location struct {
	IP         string  `json:"ip"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Count      int     `json:"count"`
}

// IPCount is the number of events seen from one address.
type IPCount struct {
	IP    string
	Count int
}

// Overview backs the dashboard stat cards.
type Overview struct {
	TotalSessions     int `json:"total_sessions"`
	UniqueDevices     int `json:"unique_devices"`
	AvgSessionsPerDay int `json:"avg_sessions_per_day"`
	ActiveDays        int `json:"active_days"`
	WindowDays        int `json:"window_days"`
}
