package dispatcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ReasonMetricKey    string = "reason"
	reasonQueueFull    string = "queue_full"
	reasonShuttingDown string = "shutting_down"
	reasonInFlight     string = "already_in_flight"
)

var ensureMetricRegisteringOnce sync.Once

var queueCapacityGauge prometheus.Gauge
var workersCountGauge prometheus.Gauge
var dispatchCounter prometheus.Counter
var queuedItemsGauge prometheus.Gauge
var inFlightGauge prometheus.Gauge
var dispatchFailed *prometheus.CounterVec

type metricCollector struct{}

func newMetricCollector(metricRegistry *prometheus.Registry) *metricCollector {
	ensureMetricRegisteringOnce.Do(func() {
		queueCapacityGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logpig",
				Subsystem: "dispatcher",
				Name:      "queue_capacity",
				Help:      "The total capacity of the internal queue.",
			},
		)

		workersCountGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logpig",
				Subsystem: "dispatcher",
				Name:      "workers_online",
				Help:      "The total number of workers, meaning how many files can be processed in parallel.",
			},
		)

		dispatchCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "logpig",
				Subsystem: "dispatcher",
				Name:      "dispatch_calls_total",
				Help:      "The total number of times a task was dispatched.",
			},
		)

		queuedItemsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logpig",
				Subsystem: "dispatcher",
				Name:      "items_in_queue",
				Help:      "The count of current tasks in the internal queue, waiting for a worker.",
			},
		)

		inFlightGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logpig",
				Subsystem: "dispatcher",
				Name:      "files_in_flight",
				Help:      "How many files are claimed by a queued or running task.",
			},
		)

		dispatchFailed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpig",
				Subsystem: "dispatcher",
				Name:      "dispatch_failed_total",
				Help:      "Counter for failures when trying to dispatch a task",
			},
			[]string{ReasonMetricKey})

		metricRegistry.MustRegister(
			queueCapacityGauge, workersCountGauge, dispatchCounter, queuedItemsGauge, inFlightGauge,
			dispatchFailed,
		)
	})

	return &metricCollector{}
}

func (m *metricCollector) queueCapacity(queueCapacity int) {
	queueCapacityGauge.Set(float64(queueCapacity))
}

func (m *metricCollector) workersCount(workersCount int) {
	workersCountGauge.Set(float64(workersCount))
}

func (m *metricCollector) increaseDispatchCounter() {
	dispatchCounter.Inc()
}

func (m *metricCollector) queuedItems(itemsCount int) {
	queuedItemsGauge.Set(float64(itemsCount))
}

func (m *metricCollector) inFlight(count int) {
	inFlightGauge.Set(float64(count))
}

func (m *metricCollector) incDispatchFailed(reason string) {
	dispatchFailed.WithLabelValues(reason).Inc()
}
