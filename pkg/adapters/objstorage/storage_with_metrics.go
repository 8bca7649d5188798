package objstorage

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StorageTypeLabel string = "storage_type"
	OperationLabel   string = "operation"

	putObjectOperation    = "put_object"
	createBucketOperation = "create_bucket"
)

var (
	ensureMetricRegisteringOnce sync.Once
	latencyHistogram            *prometheus.HistogramVec
	requestCounter              *prometheus.CounterVec
	requestErrorCounter         *prometheus.CounterVec
)

type storageWithMetrics struct {
	storage     ObjStorageWithMetadata
	wrappedType string
}

func NewStorageWithMetrics(storage ObjStorageWithMetadata, metricRegistry *prometheus.Registry) ObjStorageWithMetadata {
	ensureMetricRegisteringOnce.Do(func() {
		latencyHistogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:      "request_latency_seconds",
				Subsystem: "object_storage",
				Namespace: "logpig",
				Help:      "the time it took to finish a request to object storage",
				Buckets:   []float64{0.25, 0.5, 1.0, 1.5, 2.0, 5.0, 10.0, 30.0, 45.0, 60.0, 90.0, 120.0, 180.0, 240.0, 300.0, 600.0},
			},
			[]string{StorageTypeLabel, OperationLabel},
		)

		requestCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "requests_total",
				Namespace: "logpig",
				Subsystem: "object_storage",
				Help:      "count of requests to object storage that finished",
			},
			[]string{StorageTypeLabel, OperationLabel},
		)

		requestErrorCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "request_errors_total",
				Namespace: "logpig",
				Subsystem: "object_storage",
				Help:      "count of failed requests to object storage",
			},
			[]string{StorageTypeLabel, OperationLabel},
		)

		metricRegistry.MustRegister(
			latencyHistogram,
			requestCounter,
			requestErrorCounter,
		)
	})

	return &storageWithMetrics{
		storage:     storage,
		wrappedType: storage.Type(),
	}
}

func (w *storageWithMetrics) PutObject(ctx context.Context, bucket, key, localPath string) error {
	startTime := time.Now()
	err := w.storage.PutObject(ctx, bucket, key, localPath)
	w.observe(putObjectOperation, startTime, err)
	return err
}

func (w *storageWithMetrics) CreateBucket(ctx context.Context, bucket, region string) error {
	startTime := time.Now()
	err := w.storage.CreateBucket(ctx, bucket, region)
	w.observe(createBucketOperation, startTime, err)
	return err
}

func (w *storageWithMetrics) Type() string {
	return w.wrappedType
}

func (w *storageWithMetrics) observe(operation string, startTime time.Time, err error) {
	latencyHistogram.WithLabelValues(w.wrappedType, operation).Observe(time.Since(startTime).Seconds())
	requestCounter.WithLabelValues(w.wrappedType, operation).Inc()

	if err != nil {
		requestErrorCounter.WithLabelValues(w.wrappedType, operation).Inc()
	}
}
