package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the package-level recorders", t, func() {
		Convey("Then ingestion recorders should not panic", func() {
			So(func() {
				RecordBatch(5)
				RecordRatingApplied()
				RecordRatingSkipped()
			}, ShouldNotPanic)
		})

		Convey("Then allocator recorders should not panic", func() {
			So(func() {
				RecordAllocationDeviation(0.0001)
				RecordAllocatorExhaustion()
			}, ShouldNotPanic)
		})

		Convey("Then store recorders should not panic", func() {
			So(func() {
				RecordLockWait(1.5)
				RecordLockTimeout()
				RecordPersistLatency(2.0)
				UpdateStoreTotals(100, 40, 250)
			}, ShouldNotPanic)
		})

		Convey("Then HTTP and presence recorders should not panic", func() {
			So(func() {
				RecordHTTPRequest("ratings", "POST", "200")
				RecordHTTPRequestDuration("ratings", "POST", "200", 3.2)
				UpdatePresenceCount(7)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		So(GetRegistry(), ShouldNotBeNil)
	})
}
