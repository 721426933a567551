// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Event names recorded by the desktop client.
const (
	EventAppStart   = "app_start"
	EventFeatureUse = "feature_use"
	EventPageView   = "page_view"
	EventError      = "error"
)

// Property keys read by the reducers.
const (
	PropFeatureName = "feature_name"
	PropPageName    = "page_name"
)

// Event is one row of telemetry_events.
// JSON tags match the column names so REST rows decode directly.
type Event struct {
	ID           string     `json:"id"`
	EventName    string     `json:"event_name"`
	DeviceID     string     `json:"device_id"`
	SessionID    string     `json:"session_id"`
	Timestamp    time.Time  `json:"timestamp"`
	Properties   Properties `json:"properties"`
	OSVersion    string     `json:"os_version"`
	AppVersion   string     `json:"app_version"`
	ScreenWidth  int        `json:"screen_width"`
	ScreenHeight int        `json:"screen_height"`
	Culture      string     `json:"culture"`
	MachineName  string     `json:"machine_name"`
	IPAddress    string     `json:"ip_address"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Prop returns a property value or "".
func (e Event) Prop(key string) string {
	if e.Properties == nil {
		return ""
	}
	return e.Properties[key]
}

// Properties is the free-form string map attached to an event.
type Properties map[string]string

// UnmarshalJSON accepts any JSON object and stringifies scalar values.
// Clients occasionally send numbers or booleans; nested values are kept as raw JSON.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*p = nil
		return nil
	}
	out := make(Properties, len(raw))
	for k, v := range raw {
		out[k] = scalarString(v)
	}
	*p = out
	return nil
}

func scalarString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return strconv.FormatBool(b)
	}
	if string(v) == "null" {
		return ""
	}
	return string(v)
}
