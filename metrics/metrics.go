// Package metrics exposes the engine's prometheus instrumentation, in the
// same package-level promauto.New*Vec style as the teacher's monitoring
// package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	priceTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microengine_price_ticks_total",
			Help: "Total number of incoming price ticks handled.",
		},
		[]string{"instrument"},
	)

	recalculationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "microengine_recalculation_latency_milliseconds",
			Help:    "Latency of one RecalculateAccordingToUpdates cycle.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	dirtySetSizeAtDrain = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "microengine_dirty_set_size_at_drain",
			Help:    "Number of distinct dirty instrument ids drained per recalculation cycle.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	livePositions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "microengine_live_positions",
			Help: "Number of open positions currently cached.",
		},
	)

	liveAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "microengine_live_accounts",
			Help: "Number of accounts currently cached.",
		},
	)

	crossResolutionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microengine_cross_resolution_failures_total",
			Help: "Total number of cross-rate pairs that failed to resolve at construction time.",
		},
		[]string{"base", "quote"},
	)
)

// RecordPriceTick increments the per-instrument tick counter.
func RecordPriceTick(instrument string) {
	priceTicksTotal.WithLabelValues(instrument).Inc()
}

// ObserveRecalculationLatency records one recalculation cycle's duration in milliseconds.
func ObserveRecalculationLatency(ms float64) {
	recalculationLatency.Observe(ms)
}

// ObserveDirtySetSizeAtDrain records how many distinct price ids a
// recalculation cycle drained.
func ObserveDirtySetSizeAtDrain(size int) {
	dirtySetSizeAtDrain.Observe(float64(size))
}

// SetLivePositions sets the current open-position count.
func SetLivePositions(count int) {
	livePositions.Set(float64(count))
}

// SetLiveAccounts sets the current cached-account count.
func SetLiveAccounts(count int) {
	liveAccounts.Set(float64(count))
}

// RecordCrossResolutionFailure increments the cross-resolution failure
// counter for one base/quote pair.
func RecordCrossResolutionFailure(base, quote string) {
	crossResolutionFailuresTotal.WithLabelValues(base, quote).Inc()
}
