package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "pulse")
				So(manager.subsystem, ShouldEqual, "dashboard")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_ns"),
				WithSubsystem("test_sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.httpRequests.WithLabelValues("daily-starts", "GET", "200").Inc()

			Convey("Then collectors carry the custom names and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, mf := range families {
					if mf.GetName() == "test_ns_test_sub_http_requests_total" {
						found = true
						var names []string
						for _, lp := range mf.GetMetric()[0].GetLabel() {
							names = append(names, lp.GetName())
						}
						So(names, ShouldContain, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are supplied", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "pulse")
				So(manager.subsystem, ShouldEqual, "dashboard")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording backend reads", func() {
			before := testutil.ToFloat64(globalManager.backendRowsFetched.WithLabelValues("postgres", "app_start"))
			RecordBackendQuery("postgres", "app_start", 12, 40)

			Convey("Then the row counter advances by the row count", func() {
				after := testutil.ToFloat64(globalManager.backendRowsFetched.WithLabelValues("postgres", "app_start"))
				So(after-before, ShouldEqual, float64(40))
			})
		})

		Convey("When recording a read without an event filter", func() {
			before := testutil.ToFloat64(globalManager.backendRowsFetched.WithLabelValues("postgrest", "any"))
			RecordBackendQuery("postgrest", "", 3, 2)

			Convey("Then it is labelled any", func() {
				after := testutil.ToFloat64(globalManager.backendRowsFetched.WithLabelValues("postgrest", "any"))
				So(after-before, ShouldEqual, float64(2))
			})
		})

		Convey("When recording geolocation outcomes", func() {
			before := testutil.ToFloat64(globalManager.geoLookups.WithLabelValues("success"))
			RecordGeoLookups("success", 5)
			RecordGeoLookups("success", 0)

			Convey("Then zero counts are ignored", func() {
				after := testutil.ToFloat64(globalManager.geoLookups.WithLabelValues("success"))
				So(after-before, ShouldEqual, float64(5))
			})
		})

		Convey("When recording the remaining collectors", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordHTTPRequest("devices", "GET", "200")
					RecordHTTPRequestDuration("devices", "GET", "200", 4)
					RecordErrorByEndpoint("devices", "GET", "server_error")
					RecordBackendError("postgres")
					UpdateAggregateResultSize("hourly-heatmap", 168)
					RecordGeoCache("lru", "hit", 3)
					RecordGeoBatchDuration(80)
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.2)
				}, ShouldNotPanic)
			})
		})

		Convey("When exporting the registry", func() {
			UpdateAggregateResultSize("hourly-heatmap", 168)
			count, err := testutil.GatherAndCount(GetRegistry(), "pulse_dashboard_aggregate_result_size")

			Convey("Then the custom registry exposes pulse collectors", func() {
				So(err, ShouldBeNil)
				So(count, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager rebuilt with a custom namespace and labels", t, func() {
		Configure(WithNamespace("telemetry"), WithConstLabels(map[string]string{"env": "staging"}))
		defer Configure()

		UpdateAggregateResultSize("devices", 3)

		Convey("Then the exported registry carries the new names", func() {
			count, err := testutil.GatherAndCount(GetRegistry(), "telemetry_dashboard_aggregate_result_size")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)

			count, err = testutil.GatherAndCount(GetRegistry(), "pulse_dashboard_aggregate_result_size")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 0)
		})

		Convey("And every series has the constant label", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(families, ShouldNotBeEmpty)
			for _, mf := range families {
				for _, m := range mf.GetMetric() {
					labels := map[string]string{}
					for _, lp := range m.GetLabel() {
						labels[lp.GetName()] = lp.GetValue()
					}
					So(labels["env"], ShouldEqual, "staging")
				}
			}
		})
	})
}
