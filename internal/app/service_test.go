package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/adapters/geo"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/window"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu      sync.Mutex
	events  []model.Event
	err     error
	queries []repository.Query
}

func (f *fakeStore) Events(_ context.Context, q repository.Query) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Event{}
	for _, e := range f.events {
		if q.EventName != "" && e.EventName != q.EventName {
			continue
		}
		if q.RequireIP && e.IPAddress == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) Name() string { return "fake" }

type fakeResolver struct {
	got []string
	err error
}

func (f *fakeResolver) Lookup(_ context.Context, ips []string) ([]geo.Result, error) {
	f.got = ips
	if f.err != nil {
		return nil, f.err
	}
	out := []geo.Result{}
	for _, ip := range ips {
		if ip == "10.0.0.1" {
			continue
		}
		out = append(out, geo.Result{IP: ip, City: "Seoul", RegionName: "Seoul", Lat: 37.5, Lon: 127})
	}
	return out, nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

func sampleEvents() []model.Event {
	at := func(h int) time.Time { return now.Add(time.Duration(-h) * time.Hour) }
	return []model.Event{
		{EventName: model.EventAppStart, DeviceID: "a", Timestamp: at(50), AppVersion: "1.0.0", IPAddress: "203.0.113.7"},
		{EventName: model.EventFeatureUse, DeviceID: "a", Timestamp: at(49), Properties: model.Properties{"feature_name": "export"}, IPAddress: "203.0.113.7"},
		{EventName: model.EventAppStart, DeviceID: "b", Timestamp: at(3), AppVersion: "2.0.0", IPAddress: "10.0.0.1"},
		{EventName: model.EventPageView, DeviceID: "b", Timestamp: at(2), Properties: model.Properties{"page_name": "home"}},
	}
}

func weekWindow() window.Window {
	p := window.NewParser(window.WithClock(func() time.Time { return now }))
	return p.Build(7, 0)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it reads from the disabled store", func() {
			So(svc, ShouldNotBeNil)
			So(svc.StoreName(), ShouldEqual, "disabled")
		})

		Convey("Then every list is empty rather than an error", func() {
			daily, err := svc.DailyStarts(context.Background(), weekWindow())
			So(err, ShouldBeNil)
			So(daily, ShouldNotBeNil)
			So(daily, ShouldBeEmpty)

			locs, err := svc.IPLocations(context.Background(), weekWindow())
			So(err, ShouldBeNil)
			So(locs, ShouldBeEmpty)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service with a registered closer", t, func() {
		closed := 0
		svc := service.New(service.WithCloser(closerFunc(func() error { closed++; return nil })))

		Convey("When starting twice and stopping twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then the closer runs once", func() {
				So(closed, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a service over a fake store", t, func() {
		store := &fakeStore{events: sampleEvents()}
		resolver := &fakeResolver{}
		svc := service.New(service.WithStore(store), service.WithResolver(resolver), service.WithRecentLimit(3))
		ctx := context.Background()
		w := weekWindow()

		Convey("When asking for daily starts", func() {
			daily, err := svc.DailyStarts(ctx, w)

			Convey("Then only app starts in the window are requested", func() {
				So(err, ShouldBeNil)
				So(len(daily), ShouldEqual, 2)
				So(store.queries[0].EventName, ShouldEqual, model.EventAppStart)
				So(store.queries[0].Since, ShouldEqual, now.AddDate(0, 0, -7))
			})
		})

		Convey("When asking for the heatmap", func() {
			cells, err := svc.HourlyHeatmap(ctx, w)

			Convey("Then every event is bucketed", func() {
				So(err, ShouldBeNil)
				So(len(cells), ShouldEqual, 168)
				total := 0
				for _, c := range cells {
					total += c.Count
				}
				So(total, ShouldEqual, 4)
				So(store.queries[0].EventName, ShouldEqual, "")
			})
		})

		Convey("When asking for recent activity", func() {
			feed, err := svc.RecentActivity(ctx)

			Convey("Then the query is newest first with the limit", func() {
				So(err, ShouldBeNil)
				So(len(feed), ShouldEqual, 3)
				So(feed[0].EventName, ShouldEqual, model.EventPageView)
				So(store.queries[0].Descending, ShouldBeTrue)
				So(store.queries[0].Limit, ShouldEqual, 3)
				So(store.queries[0].Since.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When asking for devices", func() {
			devices, err := svc.Devices(ctx, w)

			Convey("Then the roster covers both devices", func() {
				So(err, ShouldBeNil)
				So(len(devices), ShouldEqual, 2)
				So(devices[0].DeviceID, ShouldEqual, "b")
				So(devices[0].FeaturesUsed, ShouldBeEmpty)
				So(devices[1].FeaturesUsed, ShouldResemble, []string{"export"})
			})
		})

		Convey("When asking for IP locations", func() {
			locs, err := svc.IPLocations(ctx, w)

			Convey("Then resolved addresses carry their event counts", func() {
				So(err, ShouldBeNil)
				So(store.queries[0].RequireIP, ShouldBeTrue)
				So(resolver.got, ShouldResemble, []string{"203.0.113.7", "10.0.0.1"})
				So(len(locs), ShouldEqual, 1)
				So(locs[0].IP, ShouldEqual, "203.0.113.7")
				So(locs[0].Count, ShouldEqual, 2)
			})
		})

		Convey("When geolocation fails", func() {
			resolver.err = geo.ErrLookup
			_, err := svc.IPLocations(ctx, w)

			Convey("Then the lookup error is returned", func() {
				So(errors.Is(err, geo.ErrLookup), ShouldBeTrue)
			})
		})

		Convey("When asking for the overview", func() {
			ov, err := svc.Overview(ctx, w)

			Convey("Then starts and devices are combined", func() {
				So(err, ShouldBeNil)
				So(ov.TotalSessions, ShouldEqual, 2)
				So(ov.UniqueDevices, ShouldEqual, 2)
				So(ov.ActiveDays, ShouldEqual, 2)
				So(ov.AvgSessionsPerDay, ShouldEqual, 1)
				So(ov.WindowDays, ShouldEqual, 7)
			})
		})

		Convey("When the store fails", func() {
			store.err = repository.ErrQuery

			Convey("Then every metric returns a wrapped query error", func() {
				_, err := svc.FeatureUsage(ctx, w)
				So(errors.Is(err, repository.ErrQuery), ShouldBeTrue)
				So(err.Error(), ShouldStartWith, "feature-usage")

				_, err = svc.VersionDistribution(ctx, w)
				So(errors.Is(err, repository.ErrQuery), ShouldBeTrue)

				_, err = svc.Overview(ctx, w)
				So(errors.Is(err, repository.ErrQuery), ShouldBeTrue)
			})
		})
	})
}
