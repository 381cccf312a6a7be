package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors published by the update pipeline.
type Metrics struct {
	CycleDuration    prometheus.Histogram
	PublishedRecords prometheus.Gauge
	ConversionErrors prometheus.Counter
	SourceErrors     *prometheus.CounterVec
}

// New registers the pipeline collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricebatcher_cycle_duration_seconds",
			Help:    "Wall time of one full update cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		PublishedRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricebatcher_published_records",
			Help: "Number of records in the current snapshot.",
		}),
		ConversionErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "pricebatcher_conversion_errors_total",
			Help: "Quotations dropped because fixed-point conversion failed.",
		}),
		SourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricebatcher_source_errors_total",
			Help: "Failed batched source calls by source name.",
		}, []string{"source"}),
	}
}
