package probe

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pulse/internal/adapters/geo"
	"github.com/okian/pulse/internal/adapters/http/api"
	"github.com/okian/pulse/internal/adapters/repository"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// memoryStore answers queries from a slice and accepts seeded events.
type memoryStore struct {
	events []model.Event
}

func (m *memoryStore) Name() string { return "memory" }

func (m *memoryStore) InsertEvents(_ context.Context, events []model.Event) (int, error) {
	m.events = append(m.events, events...)
	return len(events), nil
}

func (m *memoryStore) Events(_ context.Context, q repository.Query) ([]model.Event, error) {
	out := []model.Event{}
	for _, e := range m.events {
		switch {
		case q.EventName != "" && e.EventName != q.EventName:
		case !q.Since.IsZero() && e.Timestamp.Before(q.Since):
		case !q.Until.IsZero() && !e.Timestamp.Before(q.Until):
		case q.RequireIP && e.IPAddress == "":
		default:
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.Event) int {
		if q.Descending {
			return b.Timestamp.Compare(a.Timestamp)
		}
		return a.Timestamp.Compare(b.Timestamp)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

type echoResolver struct{}

func (echoResolver) Lookup(_ context.Context, ips []string) ([]geo.Result, error) {
	out := make([]geo.Result, len(ips))
	for i, ip := range ips {
		out[i] = geo.Result{IP: ip, City: "Seoul", RegionName: "Seoul", Lat: 37.5, Lon: 127}
	}
	return out, nil
}

func newDashboard(store *memoryStore) *httptest.Server {
	svc := service.New(service.WithStore(store), service.WithResolver(echoResolver{}))
	mux := http.NewServeMux()
	api.NewServer(svc, nil).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestGenerateEvents(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
		events := GenerateEvents(rand.New(rand.NewPCG(1, 2)), 500, 10, 7, now)

		Convey("Then the requested number of events is spread over the window", func() {
			So(len(events), ShouldEqual, 500)
			devices := map[string]bool{}
			for _, e := range events {
				So(e.Timestamp.After(now.AddDate(0, 0, -7)), ShouldBeTrue)
				So(e.Timestamp.After(now), ShouldBeFalse)
				So(e.ID, ShouldNotBeEmpty)
				devices[e.DeviceID] = true
			}
			So(len(devices), ShouldBeLessThanOrEqualTo, 10)
		})

		Convey("Then feature and page events carry their names", func() {
			for _, e := range events {
				switch e.EventName {
				case model.EventFeatureUse:
					So(e.Prop(model.PropFeatureName), ShouldNotBeEmpty)
				case model.EventPageView:
					So(e.Prop(model.PropPageName), ShouldNotBeEmpty)
				}
			}
		})

		Convey("Then zero events yields an empty slice", func() {
			So(GenerateEvents(rand.New(rand.NewPCG(1, 2)), 0, 10, 7, now), ShouldBeEmpty)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a dashboard service over an in-memory store", t, func() {
		store := &memoryStore{}
		srv := newDashboard(store)
		defer srv.Close()

		cfg := &Config{BaseURL: srv.URL, Days: 7, Timeout: 5 * time.Second, Seed: 300, Devices: 8}

		Convey("When the probe seeds and checks it", func() {
			err := Run(context.Background(), cfg, store)

			Convey("Then every endpoint passes its invariants", func() {
				So(err, ShouldBeNil)
				So(len(store.events), ShouldEqual, 300)
			})
		})

		Convey("When seeding is requested without a database", func() {
			err := Run(context.Background(), cfg, nil)

			Convey("Then the probe refuses to run", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the store is empty", func() {
			cfg.Seed = 0
			client := NewHTTPClient(srv.URL, time.Second)
			snap, results := Fetch(context.Background(), client, 30)

			Convey("Then every endpoint still answers and the heatmap is full", func() {
				for _, r := range results {
					So(r.Err, ShouldBeNil)
				}
				So(len(results), ShouldEqual, len(api.Routes))
				So(len(snap.Heatmap), ShouldEqual, 168)
				So(Verify(snap), ShouldBeEmpty)
			})
		})
	})
}

func TestRun_Unhealthy(t *testing.T) {
	Convey("Given a service whose health endpoint fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		err := Run(context.Background(), &Config{BaseURL: srv.URL, Days: 30, Timeout: time.Second}, nil)

		Convey("Then the probe reports it", func() {
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a snapshot that breaks every invariant", t, func() {
		snap := &Snapshot{
			Overview: types.Overview{TotalSessions: 9, UniqueDevices: 5},
			Daily:    []types.DailyCount{{Date: "2024-03-10", Count: 1}, {Date: "2024-03-09", Count: 1}},
			Features: []types.FeatureCount{{Feature: "a", Count: 1}, {Feature: "b", Count: 3}},
			Versions: []types.VersionCount{{Version: "2.0.10", Count: 1}, {Version: "2.1.0", Count: 1}},
			Heatmap:  make([]types.HeatmapCell, 24),
			Recent: []types.Activity{
				{Timestamp: "2024-03-09T00:00:00Z"},
				{Timestamp: "2024-03-10T00:00:00Z"},
			},
			Devices: []types.Device{{DeviceID: "a"}, {DeviceID: "a", FeaturesUsed: []string{}}},
		}

		errs := Verify(snap)

		Convey("Then each violation is reported", func() {
			routes := map[string]bool{}
			for _, err := range errs {
				So(errors.Is(err, ErrInvariant), ShouldBeTrue)
				for _, r := range api.Routes {
					if strings.Contains(err.Error(), r+":") {
						routes[r] = true
					}
				}
			}
			for _, r := range []string{
				api.RouteDailyStarts, api.RouteFeatureUsage, api.RouteVersionDistribution,
				api.RouteHourlyHeatmap, api.RouteRecentActivity, api.RouteDevices, api.RouteOverview,
			} {
				So(routes[r], ShouldBeTrue)
			}
		})
	})

	Convey("Given a well-formed snapshot", t, func() {
		snap := &Snapshot{
			Overview: types.Overview{TotalSessions: 3, UniqueDevices: 1},
			Daily:    []types.DailyCount{{Date: "2024-03-09", Count: 2}, {Date: "2024-03-10", Count: 1}},
			Versions: []types.VersionCount{{Version: "2.1.0", Count: 1}, {Version: "2.0.10", Count: 4}, {Version: "1.9.9", Count: 2}},
			Heatmap:  make([]types.HeatmapCell, 168),
			Recent: []types.Activity{
				{Timestamp: "2024-03-10T00:00:00.5Z"},
				{Timestamp: "2024-03-10T00:00:00Z"},
			},
			Devices: []types.Device{{DeviceID: "a", FeaturesUsed: []string{}}},
		}

		Convey("Then nothing is reported", func() {
			So(Verify(snap), ShouldBeEmpty)
		})
	})
}
