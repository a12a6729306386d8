package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("lb"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.updatesProcessed.Inc()

			Convey("Then collectors are registered under the namespace", func() {
				n, err := testutil.GatherAndCount(registry, "test_lb_updates_processed_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				So(testutil.ToFloat64(m.updatesProcessed), ShouldEqual, 1)
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When sync metrics are recorded", func() {
			before, _ := Value("updates_processed_total")
			RecordUpdateProcessed()
			RecordUpdateProcessed()
			after, err := Value("updates_processed_total")

			Convey("Then the counter moved by two", func() {
				So(err, ShouldBeNil)
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When labelled counters are recorded", func() {
			RecordUpdateRejected("missing_metric")
			RecordUpdateRejected("invalid_entity")
			v, err := Value("updates_rejected_total")
			So(err, ShouldBeNil)
			So(v, ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("When a snapshot is published", func() {
			RecordSnapshotPublished(42, 1_700_000_000, 1.5)
			v, err := Value("snapshot_version")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 42)
		})

		Convey("When gauges are set", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.07)
			UpdateWorkerCount(4)
			UpdateEntitiesTotal(1234)
			v, err := Value("entities_total")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 1234)
		})

		Convey("When the remaining recorders run", func() {
			So(func() {
				RecordUpdateDuplicate()
				RecordScoringLatency(0.2)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordStoreUpdateLatency(0.1)
				RecordRollover()
				RecordLeaderboardQuery("rating", "global", 2)
				RecordLeaderboardError("unknown_category")
				RecordHTTPRequest("/leaderboard", "GET", "200")
				RecordHTTPRequestDuration("/leaderboard", "GET", "200", 4)
				RecordErrorByComponent("queue", "full")
				SampleRuntime()
			}, ShouldNotPanic)

			v, err := Value("system_goroutine_count")
			So(err, ShouldBeNil)
			So(v, ShouldBeGreaterThan, 0)
		})

		Convey("When an unknown metric is read", func() {
			_, err := Value("nope")
			So(errors.Is(err, ErrUnknownMetric), ShouldBeTrue)
		})
	})
}
