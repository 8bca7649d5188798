package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

const (
	cbMaxRequestsOnHalfOpen  = 1
	cbFailCountThreshold     = 1
	circuitBreakerComponent  = "notifier_circuitbreaker"
	circuitBreakerNameMetric = "name"
)

var (
	ensureCBMetricRegisteringOnce sync.Once
	openCBGauge                   *prometheus.GaugeVec
)

type notifierWithCircuitBreaker struct {
	wrapped Notifier
	cb      *gobreaker.CircuitBreaker
}

// NewNotifierWithCircuitBreaker stops calling the wrapped notifier for openInterval after a
// failure, so a broken queue does not slow down every upload.
func NewNotifierWithCircuitBreaker(
	l *slog.Logger, notifier Notifier, metricRegistry *prometheus.Registry, openInterval time.Duration,
) Notifier {

	ensureCBMetricRegisteringOnce.Do(func() {
		openCBGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "logpig",
				Name:      "circuitbreaker_open",
				Help:      "Value is 1 when the circuit breaker is open",
			},
			[]string{circuitBreakerNameMetric},
		)

		metricRegistry.MustRegister(openCBGauge)
	})

	name := notifier.Type()
	log := l.With(logger.ComponentKey, circuitBreakerComponent, logger.NotifierTypeKey, name)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cbMaxRequestsOnHalfOpen,
		Timeout:     openInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbFailCountThreshold
		},
		OnStateChange: func(cbName string, _ gobreaker.State, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				openCBGauge.WithLabelValues(cbName).Set(1.0)
				log.Warn("circuitbreaker is open")
			case gobreaker.StateClosed:
				openCBGauge.WithLabelValues(cbName).Set(0.0)
				log.Info("circuitbreaker is closed")
			}
		},
	})

	return &notifierWithCircuitBreaker{
		wrapped: notifier,
		cb:      cb,
	}
}

func (w *notifierWithCircuitBreaker) Notify(ctx context.Context, outcome domain.UploadOutcome) error {
	_, err := w.cb.Execute(func() (interface{}, error) {
		return nil, w.wrapped.Notify(ctx, outcome)
	})
	return err
}

func (w *notifierWithCircuitBreaker) Type() string {
	return w.wrapped.Type()
}
