package service

import (
	"io"
	"time"

	"github.com/okian/pulse/internal/adapters/geo"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the event store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithResolver sets the geolocation resolver.
func WithResolver(r geo.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithCloser registers a resource released by Stop.
func WithCloser(c io.Closer) Option {
	return func(s *Service) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

// WithHeatmapOffset sets the fixed UTC offset for heatmap buckets.
func WithHeatmapOffset(d time.Duration) Option {
	return func(s *Service) {
		s.heatmapOffset = d
	}
}

// WithRecentLimit caps the live feed.
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithGeoLimit caps how many distinct addresses are geolocated.
func WithGeoLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.geoLimit = n
		}
	}
}

// WithQueryTimeout bounds each store read.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}
