package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jademcosta/logpig/pkg/dispatcher"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

type Worker struct {
	l                    *slog.Logger
	workChan             chan *dispatcher.Job
	workVolunteeringChan chan chan *dispatcher.Job
}

func NewWorker(
	l *slog.Logger, workVolunteeringChan chan chan *dispatcher.Job, metricRegistry *prometheus.Registry,
) *Worker {

	initializeMetrics(metricRegistry)

	return &Worker{
		l:                    l.With(logger.ComponentKey, "worker"),
		workChan:             make(chan *dispatcher.Job, 1),
		workVolunteeringChan: workVolunteeringChan,
	}
}

// Run should be called on a goroutine. Tasks run detached from ctx cancellation: an upload that
// started is never interrupted.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case w.workVolunteeringChan <- w.workChan:
		case <-ctx.Done():
			return
		}

		select {
		case job := <-w.workChan:
			w.work(ctx, job)
		case <-ctx.Done():
			select {
			case job := <-w.workChan:
				w.work(ctx, job)
			default:
			}
			return
		}
	}
}

func (w *Worker) work(ctx context.Context, job *dispatcher.Job) {
	incWorkInFlight()
	defer decWorkInFlight()

	startTime := time.Now()
	err := job.Execute(context.WithoutCancel(ctx))
	reportTaskDuration(job.Name(), err, time.Since(startTime))

	if err != nil {
		w.l.Error("task failed", logger.TaskIDKey, job.Ticket().ID, "task", job.Name(), "error", err)
		return
	}
	w.l.Debug("task finished", logger.TaskIDKey, job.Ticket().ID, "task", job.Name())
}
