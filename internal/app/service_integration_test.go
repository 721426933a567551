package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/adapters/geo"
	"github.com/okian/pulse/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over Postgres and a cached geolocation client", t, func() {
		db, mock, err := sqlmock.New()
		So(err, ShouldBeNil)

		var lookups atomic.Int32
		geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lookups.Add(1)
			var ips []string
			_ = json.NewDecoder(r.Body).Decode(&ips)
			out := []map[string]any{}
			for _, ip := range ips {
				out = append(out, map[string]any{"status": "success", "query": ip, "city": "Seoul", "regionName": "Seoul", "lat": 37.5, "lon": 127.0})
			}
			_ = json.NewEncoder(w).Encode(out)
		}))
		defer geoSrv.Close()

		resolver := geo.NewCachedResolver(
			geo.NewClient(geo.WithEndpoint(geoSrv.URL)),
			geo.NewLRUCache(64, time.Hour),
			nil,
		)
		svc := service.New(
			service.WithStore(repository.NewPostgresStore(db)),
			service.WithResolver(resolver),
			service.WithCloser(db),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		w := weekWindow()
		ts := now.Add(-time.Hour)
		ipRows := func() *sqlmock.Rows {
			return sqlmock.NewRows(repository.Columns).
				AddRow("e1", "app_start", "dev-1", nil, ts, nil, nil, nil, nil, nil, nil, nil, "203.0.113.7", nil).
				AddRow("e2", "page_view", "dev-2", nil, ts, nil, nil, nil, nil, nil, nil, nil, "203.0.113.7", nil)
		}

		Convey("When IP locations are requested twice", func() {
			mock.ExpectQuery(`ip_address IS NOT NULL`).WillReturnRows(ipRows())
			mock.ExpectQuery(`ip_address IS NOT NULL`).WillReturnRows(ipRows())

			first, err1 := svc.IPLocations(context.Background(), w)
			second, err2 := svc.IPLocations(context.Background(), w)

			Convey("Then the second call is served from the cache", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(len(first), ShouldEqual, 1)
				So(first[0].Count, ShouldEqual, 2)
				So(second, ShouldResemble, first)
				So(int(lookups.Load()), ShouldEqual, 1)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When the culture distribution is requested", func() {
			mock.ExpectQuery(`event_name = \$1`).
				WithArgs("app_start", w.Since).
				WillReturnRows(sqlmock.NewRows(repository.Columns).
					AddRow("e1", "app_start", "dev-1", nil, ts, nil, nil, nil, nil, nil, "ja-JP", nil, nil, nil))

			cultures, err := svc.CultureDistribution(context.Background(), w)

			Convey("Then the display name is attached", func() {
				So(err, ShouldBeNil)
				So(len(cultures), ShouldEqual, 1)
				So(cultures[0].DisplayName, ShouldEqual, "日本語 (Japan)")
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})
	})
}
