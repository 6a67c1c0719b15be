package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	quotesTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	tickDuration  prometheus.Histogram
	ticksSkipped  prometheus.Counter
	opportunities prometheus.Gauge
	subscribers   prometheus.Gauge
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		quotesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oddsedge_quotes_total",
				Help: "Quotes ingested, by book and acceptance",
			},
			[]string{"book", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oddsedge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		tickDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oddsedge_tick_duration_seconds",
				Help:    "Duration of one detection tick",
				Buckets: prometheus.DefBuckets,
			},
		),
		ticksSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oddsedge_ticks_skipped_total",
				Help: "Ticks skipped because the previous one overran",
			},
		),
		opportunities: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "oddsedge_opportunities",
				Help: "Opportunities in the current snapshot",
			},
		),
		subscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "oddsedge_subscribers",
				Help: "Active stream subscriptions",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oddsedge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordQuote records an ingested quote and whether it was accepted.
func (r *Recorder) RecordQuote(book string, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	r.quotesTotal.WithLabelValues(book, result).Inc()
}

// RecordTick records one completed detection tick.
func (r *Recorder) RecordTick(dur time.Duration, opportunities int) {
	r.tickDuration.Observe(dur.Seconds())
	r.opportunities.Set(float64(opportunities))
}

// RecordTickSkipped records a skipped tick.
func (r *Recorder) RecordTickSkipped() {
	r.ticksSkipped.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSubscribers records the current subscriber count.
func (r *Recorder) RecordSubscribers(n int) {
	r.subscribers.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
