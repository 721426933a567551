package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrQuery         = errors.New("event query failed")
	ErrInsert        = errors.New("event insert failed")
	ErrNotConfigured = errors.New("event store not configured")
)
