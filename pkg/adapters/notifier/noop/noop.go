package noop

import (
	"context"
	"log/slog"

	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
)

const Type = "noop"

type Notifier struct {
	log *slog.Logger
}

func New(l *slog.Logger) *Notifier {
	return &Notifier{
		log: l.With(logger.NotifierTypeKey, Type),
	}
}

func (noop *Notifier) Notify(_ context.Context, outcome domain.UploadOutcome) error {
	noop.log.Debug("notify called on no-op notifier", "path", outcome.LocalPath, "outcome", outcome.Status.String())
	return nil
}

func (noop *Notifier) Type() string {
	return Type
}
