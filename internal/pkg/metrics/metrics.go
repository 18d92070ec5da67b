// Package metrics exposes the Prometheus collectors of the shipment engine.
// Collectors are registered on the default registry the first time they are used.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "freight"

type collectors struct {
	allocationTotal    *prometheus.CounterVec
	allocationAttempts prometheus.Histogram
	draftSaveTotal     *prometheus.CounterVec
	bookingTotal       *prometheus.CounterVec
	documentStepTotal  *prometheus.CounterVec
	documentLatency    *prometheus.HistogramVec
}

var singleton = sync.OnceValue(func() *collectors {
	return &collectors{
		allocationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocation",
			Name:      "total",
			Help:      "Shipment id allocations by result.",
		}, []string{"result"}),
		allocationAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "allocation",
			Name:      "attempts",
			Help:      "Candidates tried per shipment id allocation.",
			Buckets:   []float64{1, 2, 3, 5, 8, 15},
		}),
		draftSaveTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draft",
			Name:      "save_total",
			Help:      "Draft saves by result.",
		}, []string{"result"}),
		bookingTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "total",
			Help:      "Booking attempts by result.",
		}, []string{"result"}),
		documentStepTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "step_total",
			Help:      "Document step runs by step and result.",
		}, []string{"step", "result"}),
		documentLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "step_latency_seconds",
			Help:      "Latency of document steps.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"step", "result"}),
	}
})

// Results used as label values.
const (
	ResultOK         = "ok"
	ResultExhausted  = "exhausted"
	ResultError      = "error"
	ResultInvalid    = "invalid"
	ResultIdempotent = "idempotent"
	ResultFailed     = "failed"
)

func RecordAllocation(attempts int, result string) {
	m := singleton()
	m.allocationTotal.WithLabelValues(result).Inc()
	m.allocationAttempts.Observe(float64(attempts))
}

func RecordDraftSave(result string) {
	singleton().draftSaveTotal.WithLabelValues(result).Inc()
}

func RecordBooking(result string) {
	singleton().bookingTotal.WithLabelValues(result).Inc()
}

func RecordDocumentStep(step string, ok bool, latency time.Duration) {
	result := ResultFailed
	if ok {
		result = ResultOK
	}
	m := singleton()
	m.documentStepTotal.WithLabelValues(step, result).Inc()
	m.documentLatency.WithLabelValues(step, result).Observe(latency.Seconds())
}
