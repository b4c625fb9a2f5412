// Package metrics exposes the bot's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns the bot's metric families. Construct one per process
// and share it; registering twice on the same registry panics.
type Recorder struct {
	ticksTotal    prometheus.Counter
	ticksDropped  prometheus.Counter
	tickDuration  prometheus.Histogram
	signalsTotal  *prometheus.CounterVec
	intentsTotal  *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	verdictsTotal *prometheus.CounterVec
	paperBalance  prometheus.Gauge
	realizedPnL   prometheus.Gauge
	positionOpen  prometheus.Gauge
}

// New creates a Recorder registered on reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh
// prometheus.NewRegistry.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "lro_ticks_total",
			Help: "Total number of price ticks accepted for processing",
		}),
		ticksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "lro_ticks_dropped_total",
			Help: "Total number of malformed or rejected price ticks",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lro_tick_duration_seconds",
			Help:    "Duration of one tick through the decision pipeline",
			Buckets: prometheus.DefBuckets,
		}),
		signalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lro_signals_total",
			Help: "Total number of generated signals by type",
		}, []string{"type"}),
		intentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lro_intents_total",
			Help: "Total number of emitted trade intents by side",
		}, []string{"side"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lro_entry_rejections_total",
			Help: "Total number of qualified entries suppressed, by stage",
		}, []string{"stage"}),
		verdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lro_safety_verdicts_total",
			Help: "Total number of safety verdicts by action",
		}, []string{"action"}),
		paperBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lro_paper_balance",
			Help: "Current simulated account balance",
		}),
		realizedPnL: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lro_realized_pnl",
			Help: "Accumulated realized PnL",
		}),
		positionOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lro_position_open",
			Help: "1 while a position is held, 0 when flat",
		}),
	}
}

// RecordTick counts an accepted tick and its pipeline duration.
func (r *Recorder) RecordTick(seconds float64) {
	r.ticksTotal.Inc()
	r.tickDuration.Observe(seconds)
}

// RecordDroppedTick counts a malformed or rejected tick.
func (r *Recorder) RecordDroppedTick() {
	r.ticksDropped.Inc()
}

// RecordSignal counts a generated signal by type name.
func (r *Recorder) RecordSignal(sigType string) {
	r.signalsTotal.WithLabelValues(sigType).Inc()
}

// RecordIntent counts an emitted trade intent by side.
func (r *Recorder) RecordIntent(side string) {
	r.intentsTotal.WithLabelValues(side).Inc()
}

// RecordRejection counts a suppressed qualified entry by stage.
func (r *Recorder) RecordRejection(stage string) {
	r.rejections.WithLabelValues(stage).Inc()
}

// RecordVerdict counts a safety verdict by action name.
func (r *Recorder) RecordVerdict(action string) {
	r.verdictsTotal.WithLabelValues(action).Inc()
}

// SetBalance publishes the simulated account balance.
func (r *Recorder) SetBalance(balance float64) {
	r.paperBalance.Set(balance)
}

// SetRealizedPnL publishes the accumulated realized PnL.
func (r *Recorder) SetRealizedPnL(v float64) {
	r.realizedPnL.Set(v)
}

// SetPositionOpen publishes whether a position is held.
func (r *Recorder) SetPositionOpen(open bool) {
	if open {
		r.positionOpen.Set(1)
	} else {
		r.positionOpen.Set(0)
	}
}
