package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

const maxErrorBody = 512

// PostgRESTStore reads events from a hosted backend's REST interface.
// Requests carry the service key both as apikey and as a bearer token.
type PostgRESTStore struct {
	baseURL string
	key     string
	options
}

// NewPostgRESTStore creates a store for the project at baseURL.
func NewPostgRESTStore(baseURL, key string, opts ...Option) *PostgRESTStore {
	s := &PostgRESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		options: defaultOptions(),
	}
	for _, opt := range opts {
		opt(&s.options)
	}
	return s
}

// Name implements Store.
func (s *PostgRESTStore) Name() string { return "postgrest" }

// Events implements Store, following limit/offset pages until a short page
// or the query limit is reached.
func (s *PostgRESTStore) Events(ctx context.Context, q Query) (events []model.Event, err error) {
	start := time.Now()
	defer func() { observe(s.Name(), q, start, len(events), err) }()

	events = []model.Event{}
	pages := 0
	for {
		size := s.pageSize
		if q.Limit > 0 {
			size = min(size, q.Limit-len(events))
		}
		page, err := s.fetchPage(ctx, q, len(events), size)
		if err != nil {
			return nil, err
		}
		pages++
		events = append(events, page...)
		if len(page) < size || (q.Limit > 0 && len(events) >= q.Limit) {
			break
		}
	}

	s.logger.Debug(ctx, "events fetched",
		logger.String("event", q.EventName),
		logger.Int("rows", len(events)),
		logger.Int("pages", pages),
		logger.Duration("took", time.Since(start)))
	return events, nil
}

func (s *PostgRESTStore) fetchPage(ctx context.Context, q Query, offset, limit int) ([]model.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL(q, offset, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrQuery, err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrQuery, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page []model.Event
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrQuery, err)
	}
	for i := range page {
		page[i].Timestamp = page[i].Timestamp.UTC()
	}
	return page, nil
}

func (s *PostgRESTStore) pageURL(q Query, offset, limit int) string {
	v := url.Values{}
	v.Set("select", strings.Join(Columns, ","))
	if q.EventName != "" {
		v.Set("event_name", "eq."+q.EventName)
	}
	if !q.Since.IsZero() {
		v.Add("timestamp", "gte."+q.Since.UTC().Format(time.RFC3339Nano))
	}
	if !q.Until.IsZero() {
		v.Add("timestamp", "lt."+q.Until.UTC().Format(time.RFC3339Nano))
	}
	if q.RequireIP {
		v.Add("ip_address", "not.is.null")
		v.Add("ip_address", "neq.")
	}
	v.Set("order", fmt.Sprintf("timestamp.%[1]s,id.%[1]s", q.direction()))
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	return s.baseURL + "/rest/v1/" + s.table + "?" + v.Encode()
}
