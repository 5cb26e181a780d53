package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry and options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.runs.WithLabelValues("pet", "manual", "ok").Inc()

			Convey("Then metrics are registered under the configured names", func() {
				So(manager, ShouldNotBeNil)
				n, err := testutil.GatherAndCount(registry, "test_unit_runs_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("Then the constant labels are attached", func() {
				expected := `
# HELP test_unit_runs_total Simulation runs by PET mode, harvest mode and outcome
# TYPE test_unit_runs_total counter
test_unit_runs_total{env="test",harvest_mode="manual",outcome="ok",pet_mode="pet"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_unit_runs_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording simulation metrics", func() {
			before := testutil.ToFloat64(globalManager.runs.WithLabelValues("penman", "auto", "range"))
			RecordRun("penman", "auto", "range")
			RecordValidationFailure("range", "harvest.frac_harv")
			RecordStageDuration("validate", 1.5)
			RecordEngineDuration(120)
			RecordDaysSimulated(10)
			UpdateJobs("queued", 3)
			RecordJobEvicted()

			Convey("Then counters and gauges move", func() {
				So(testutil.ToFloat64(globalManager.runs.WithLabelValues("penman", "auto", "range")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.jobs.WithLabelValues("queued")), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.daysSimulated), ShouldBeGreaterThanOrEqualTo, 10)
			})
		})

		Convey("When recording queue, worker, HTTP and system metrics", func() {
			So(func() {
				UpdateQueueCapacity(10)
				UpdateQueueSize(5)
				UpdateQueueUtilization(0.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(2)
				RecordWorkerProcessingLatency(12)
				RecordWorkerError()
				RecordHTTPRequest("/simulations", "POST", "202")
				RecordHTTPRequestDuration("/simulations", "POST", "202", 3)
				RecordErrorByComponent("queue", "queue_full")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
