package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jademcosta/logpig/pkg/adapters/notifier/noop"
	"github.com/jademcosta/logpig/pkg/adapters/notifier/sqs"
	"github.com/jademcosta/logpig/pkg/config"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"
)

type Notifier interface {
	Notify(ctx context.Context, outcome domain.UploadOutcome) error
	Type() string
}

func New(
	ctx context.Context, l *slog.Logger, metricRegistry *prometheus.Registry, conf config.NotificationConfig,
) (Notifier, error) {

	specificConf, err := yaml.Marshal(conf.Config)
	if err != nil {
		return nil, fmt.Errorf("error parsing notification config: %w", err)
	}

	var notifier Notifier
	switch conf.Type {
	case noop.Type:
		notifier = noop.New(l)
	case sqs.Type:
		c, err := sqs.ParseConfig(specificConf)
		if err != nil {
			return nil, fmt.Errorf("error parsing SQS-specific config: %w", err)
		}

		notifier, err = sqs.New(ctx, l, c)
		if err != nil {
			return nil, fmt.Errorf("error creating SQS notifier: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid notification type %s", conf.Type)
	}

	notifier = NewNotifierWithMetrics(notifier, metricRegistry)
	if conf.CircuitBreaker.IsOn() {
		notifier = NewNotifierWithCircuitBreaker(
			l, notifier, metricRegistry, conf.CircuitBreaker.OpenIntervalAsDuration())
	}

	return notifier, nil
}
