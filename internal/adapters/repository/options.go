package repository

import (
	"net/http"
	"time"

	"github.com/okian/pulse/pkg/logger"
)

const (
	defaultPageSize    = 1000
	defaultHTTPTimeout = 30 * time.Second
)

type options struct {
	logger     logger.Logger
	pageSize   int
	httpClient *http.Client
	table      string
}

func defaultOptions() options {
	return options{
		logger:     logger.Nop(),
		pageSize:   defaultPageSize,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		table:      Table,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPageSize sets the REST page size.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithHTTPClient sets the client used by the REST store.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithTable overrides the events table name.
func WithTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.table = name
		}
	}
}
