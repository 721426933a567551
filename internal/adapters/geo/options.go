package geo

import (
	"net/http"

	"github.com/okian/pulse/pkg/logger"
)

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithEndpoint overrides the batch endpoint URL.
func WithEndpoint(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithBatchLimit caps addresses per request, at most MaxBatch.
func WithBatchLimit(n int) ClientOption {
	return func(c *Client) {
		if n > 0 && n <= MaxBatch {
			c.batchLimit = n
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
