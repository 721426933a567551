package geo

import "errors"

// Sentinel kinds for geolocation errors.
var (
	ErrLookup = errors.New("geolocation lookup failed")
	ErrCache  = errors.New("geolocation cache failed")
)
