package compression

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var compressionRatioHist *prometheus.HistogramVec
var compressionLatencyHist *prometheus.HistogramVec
var compressionFailures *prometheus.CounterVec
var ensureSingleMetricRegistration sync.Once

func initializeMetrics(metricRegistry *prometheus.Registry) {
	ensureSingleMetricRegistration.Do(func() {
		compressionRatioHist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logpig",
				Subsystem: "compression",
				Name:      "ratio",
				Help:      "the ratio of compressed size vs original size (the lower the better compression)",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.15, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1},
			}, []string{"type"})

		compressionLatencyHist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logpig",
				Subsystem: "compression",
				Name:      "duration_millis",
				Help:      "The time it took to compress a rolled file, in milliseconds",
				Buckets:   []float64{5.0, 10.0, 25.0, 50.0, 125.0, 250.0, 500.0, 1000.0, 5000.0, 30000.0},
			},
			[]string{"type"},
		)

		compressionFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpig",
				Subsystem: "compression",
				Name:      "failures_total",
				Help:      "How many rolled files could not be compressed (and so were not uploaded)",
			},
			[]string{"type"},
		)

		metricRegistry.MustRegister(compressionRatioHist, compressionLatencyHist, compressionFailures)
	})
}

func reportCompressionRatio(compressionType string, ratio float64) {
	compressionRatioHist.WithLabelValues(compressionType).Observe(ratio)
}

func reportCompressionDuration(compressionType string, duration time.Duration) {
	compressionLatencyHist.WithLabelValues(compressionType).Observe(float64(duration.Milliseconds()))
}

func reportCompressionFailure(compressionType string) {
	compressionFailures.WithLabelValues(compressionType).Inc()
}
