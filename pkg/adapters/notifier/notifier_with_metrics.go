package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	NotifierTypeLabel string = "notifier_type"
	OutcomeLabel      string = "outcome"
)

var (
	ensureMetricRegisteringOnce sync.Once
	latencyHistogram            *prometheus.HistogramVec
	notifyCounter               *prometheus.CounterVec
	notifyErrorCounter          *prometheus.CounterVec
)

type notifierWithMetrics struct {
	wrapped     Notifier
	wrappedType string
}

func NewNotifierWithMetrics(notifier Notifier, metricRegistry *prometheus.Registry) Notifier {
	ensureMetricRegisteringOnce.Do(func() {
		latencyHistogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:      "send_latency_seconds",
				Subsystem: "notifier",
				Namespace: "logpig",
				Help:      "the time it took to send an upload notification (only successful cases)",
				Buckets:   []float64{0.25, 0.5, 1.0, 1.5, 2.0, 5.0, 10.0, 30.0, 45.0, 60.0},
			},
			[]string{NotifierTypeLabel},
		)

		notifyCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "send_total",
				Namespace: "logpig",
				Subsystem: "notifier",
				Help:      "count of upload notifications that finished (successful or not)",
			},
			[]string{NotifierTypeLabel, OutcomeLabel},
		)

		notifyErrorCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "send_errors_total",
				Namespace: "logpig",
				Subsystem: "notifier",
				Help:      "count of errors sending upload notifications",
			},
			[]string{NotifierTypeLabel},
		)

		metricRegistry.MustRegister(latencyHistogram, notifyCounter, notifyErrorCounter)
	})

	return &notifierWithMetrics{
		wrapped:     notifier,
		wrappedType: notifier.Type(),
	}
}

func (w *notifierWithMetrics) Notify(ctx context.Context, outcome domain.UploadOutcome) error {
	notifyCounter.WithLabelValues(w.wrappedType, outcome.Status.String()).Inc()
	startTime := time.Now()

	err := w.wrapped.Notify(ctx, outcome)
	elapsedTime := time.Since(startTime).Seconds()

	if err != nil {
		notifyErrorCounter.WithLabelValues(w.wrappedType).Inc()
	} else {
		latencyHistogram.WithLabelValues(w.wrappedType).Observe(elapsedTime)
	}

	return err
}

func (w *notifierWithMetrics) Type() string {
	return w.wrappedType
}
