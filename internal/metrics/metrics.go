// Package metrics registers Prometheus collectors for the screening
// pipeline and exposes small record helpers so callers never touch
// collector types directly.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	propagationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbscreen_propagation_duration_seconds",
			Help:    "Batch propagation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	propagationObjectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbscreen_propagation_objects_total",
			Help: "Total objects propagated in batches, by outcome.",
		},
		[]string{"outcome"},
	)

	screeningRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbscreen_screening_runs_total",
			Help: "Total screening runs, by mode.",
		},
		[]string{"mode"},
	)

	screeningDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbscreen_screening_duration_seconds",
			Help:    "Screening run duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"mode"},
	)

	refinedEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbscreen_refined_events_total",
			Help: "Total conjunction events surviving refinement.",
		},
	)

	parseWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbscreen_parse_warnings_total",
			Help: "Total parse warnings, by source.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(propagationDurationSeconds)
	prometheus.MustRegister(propagationObjectsTotal)
	prometheus.MustRegister(screeningRunsTotal)
	prometheus.MustRegister(screeningDurationSeconds)
	prometheus.MustRegister(refinedEventsTotal)
	prometheus.MustRegister(parseWarningsTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPropagation records one batch propagation.
func RecordPropagation(duration time.Duration, success, errors int) {
	propagationDurationSeconds.Observe(duration.Seconds())
	propagationObjectsTotal.WithLabelValues("success").Add(float64(success))
	propagationObjectsTotal.WithLabelValues("error").Add(float64(errors))
}

// RecordScreening records one completed screening run.
func RecordScreening(mode string, duration time.Duration, events int) {
	screeningRunsTotal.WithLabelValues(mode).Inc()
	screeningDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
	refinedEventsTotal.Add(float64(events))
}

// RecordParseWarning counts a parse warning from the named source.
func RecordParseWarning(source string) {
	parseWarningsTotal.WithLabelValues(source).Inc()
}
