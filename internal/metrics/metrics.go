// Package metrics exposes Prometheus counters for scan and backtest
// runs. All recording helpers are nil-safe so callers can run without a
// registry wired in.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	signalsGenerated *prometheus.CounterVec
	symbolsEvaluated prometheus.Counter
	symbolsSkipped   *prometheus.CounterVec
	backtestsTotal   prometheus.Counter
	backtestDuration prometheus.Histogram
	scanDuration     prometheus.Histogram
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		signalsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_signals_generated_total",
				Help: "Total number of signals generated",
			},
			[]string{"signal_type"},
		),
		symbolsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scanner_symbols_evaluated_total",
				Help: "Total number of symbols evaluated",
			},
		),
		symbolsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_symbols_skipped_total",
				Help: "Total number of symbols skipped, by error code",
			},
			[]string{"code"},
		),
		backtestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scanner_backtests_total",
				Help: "Total number of symbol backtests run",
			},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scanner_backtest_duration_seconds",
				Help:    "Per-symbol backtest duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scanner_scan_duration_seconds",
				Help:    "Per-symbol scan duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.symbolsEvaluated)
	reg.MustRegister(r.symbolsSkipped)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.scanDuration)

	return r
}

// RecordSignal counts a generated signal by direction
func (r *Registry) RecordSignal(signalType string) {
	if r == nil {
		return
	}
	r.signalsGenerated.WithLabelValues(signalType).Inc()
}

// RecordSymbolEvaluated counts one completed symbol evaluation
func (r *Registry) RecordSymbolEvaluated(d time.Duration) {
	if r == nil {
		return
	}
	r.symbolsEvaluated.Inc()
	r.scanDuration.Observe(d.Seconds())
}

// RecordSymbolSkipped counts a symbol rejected with an error code
func (r *Registry) RecordSymbolSkipped(code string) {
	if r == nil {
		return
	}
	r.symbolsSkipped.WithLabelValues(code).Inc()
}

// RecordBacktest counts one completed symbol backtest
func (r *Registry) RecordBacktest(d time.Duration) {
	if r == nil {
		return
	}
	r.backtestsTotal.Inc()
	r.backtestDuration.Observe(d.Seconds())
}
