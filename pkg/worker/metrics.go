package worker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var ensureSingleMetricRegistration sync.Once
var workInFlightGauge prometheus.Gauge
var taskLatencyHist *prometheus.HistogramVec

func initializeMetrics(metricRegistry *prometheus.Registry) {
	ensureSingleMetricRegistration.Do(func() {
		workInFlightGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logpig",
				Subsystem: "worker",
				Name:      "work_in_flight",
				Help:      "How many workers are performing work (vs being idle) right now.",
			})

		taskLatencyHist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logpig",
				Subsystem: "worker",
				Name:      "task_duration_seconds",
				Help:      "The time it took to run a task (compression and upload of one file)",
				Buckets:   []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0, 600.0},
			},
			[]string{"task", "result"},
		)

		metricRegistry.MustRegister(workInFlightGauge, taskLatencyHist)
	})
}

func incWorkInFlight() {
	workInFlightGauge.Inc()
}

func decWorkInFlight() {
	workInFlightGauge.Dec()
}

func reportTaskDuration(taskName string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	taskLatencyHist.WithLabelValues(taskName, result).Observe(duration.Seconds())
}
