// Package geo resolves IP addresses to coordinates through a batch lookup API,
// optionally behind an LRU or Redis cache.
package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const (
	// DefaultEndpoint is the public ip-api.com batch endpoint restricted to the fields we read.
	DefaultEndpoint = "http://ip-api.com/batch?fields=status,city,regionName,lat,lon,query"
	// MaxBatch is the provider's per-request cap.
	MaxBatch = 100

	unknownPlace  = "Unknown"
	statusSuccess = "success"
)

// Result is a resolved address.
type Result struct {
	IP         string  `json:"ip"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	// Unresolved marks a cached negative answer; resolvers never return it.
	Unresolved bool    `json:"unresolved,omitempty"`
}

// Resolver looks up a batch of addresses. Unresolvable addresses are omitted.
type Resolver interface {
	Lookup(ctx context.Context, ips []string) ([]Result, error)
}

type apiItem struct {
	Status     string  `json:"status"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Query      string  `json:"query"`
}

// Client calls the batch endpoint directly.
type Client struct {
	endpoint   string
	batchLimit int
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a Client with the public endpoint and a 10s timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		batchLimit: MaxBatch,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup implements Resolver. Only the first batchLimit addresses are sent.
func (c *Client) Lookup(ctx context.Context, ips []string) ([]Result, error) {
	if len(ips) == 0 {
		return []Result{}, nil
	}
	if len(ips) > c.batchLimit {
		ips = ips[:c.batchLimit]
	}

	body, err := json.Marshal(ips)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrLookup, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrLookup, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordGeoBatchDuration(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordGeoLookups("error", len(ips))
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordGeoLookups("error", len(ips))
		return nil, fmt.Errorf("%w: status %d", ErrLookup, resp.StatusCode)
	}

	var items []apiItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLookup, err)
	}

	out := make([]Result, 0, len(items))
	for _, it := range items {
		if it.Status != statusSuccess {
			continue
		}
		r := Result{IP: it.Query, Lat: it.Lat, Lon: it.Lon, City: it.City, RegionName: it.RegionName}
		if r.City == "" {
			r.City = unknownPlace
		}
		if r.RegionName == "" {
			r.RegionName = unknownPlace
		}
		out = append(out, r)
	}
	metrics.RecordGeoLookups("success", len(out))
	metrics.RecordGeoLookups("fail", len(items)-len(out))
	c.logger.Debug(ctx, "geolocation batch resolved",
		logger.Int("requested", len(ips)),
		logger.Int("resolved", len(out)),
		logger.Duration("took", time.Since(start)))
	return out, nil
}
