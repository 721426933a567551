package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrQuery  = errors.New("metric query failed")
	ErrEncode = errors.New("response encode failed")
)
