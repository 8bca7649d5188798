package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const ComponentName = "dispatcher"

var (
	ErrQueueFull       = errors.New("dispatch queue is full")
	ErrShuttingDown    = errors.New("dispatcher shutting down")
	ErrAlreadyInFlight = errors.New("a task for this file is already in flight")
)

type Dispatcher struct {
	queue         chan *Job
	WorkersReady  chan chan *Job
	log           *slog.Logger
	metrics       *metricCollector
	shutdownMutex sync.RWMutex
	shuttingDown  bool
	inFlightMu    sync.Mutex
	inFlight      map[string]*Ticket
	outstanding   sync.WaitGroup
	doneChan      chan struct{}
}

func New(l *slog.Logger, workersCount int, queueCapacity int, metricRegistry *prometheus.Registry) *Dispatcher {
	metrics := newMetricCollector(metricRegistry)

	metrics.queueCapacity(queueCapacity)
	metrics.workersCount(workersCount)

	return &Dispatcher{
		queue:        make(chan *Job, queueCapacity),
		WorkersReady: make(chan chan *Job, workersCount),
		log:          l.With(logger.ComponentKey, ComponentName),
		metrics:      metrics,
		inFlight:     make(map[string]*Ticket),
		doneChan:     make(chan struct{}),
	}
}

// Dispatch never blocks. It fails when the queue is full, when the dispatcher is shutting down
// or when task.Key is already claimed by another task.
func (d *Dispatcher) Dispatch(task Task) (*Ticket, error) {
	d.shutdownMutex.RLock()
	defer d.shutdownMutex.RUnlock()
	if d.shuttingDown {
		d.metrics.incDispatchFailed(reasonShuttingDown)
		return nil, ErrShuttingDown
	}

	d.metrics.increaseDispatchCounter()

	ticket := newTicket(uuid.NewString(), task.Key)
	if !d.claim(ticket) {
		d.metrics.incDispatchFailed(reasonInFlight)
		return nil, ErrAlreadyInFlight
	}

	job := &Job{task: task, ticket: ticket, finish: d.finish}
	d.outstanding.Add(1)

	select {
	case d.queue <- job:
		d.updateQueuedItemsMetric()
	default:
		d.release(ticket)
		d.outstanding.Done()
		d.metrics.incDispatchFailed(reasonQueueFull)
		return nil, ErrQueueFull
	}

	d.log.Debug("task dispatched", logger.TaskIDKey, ticket.ID, "task", task.Name, logger.FileKey, task.Key)
	return ticket, nil
}

// InFlight returns the ticket of the task that currently claims key.
func (d *Dispatcher) InFlight(key string) (*Ticket, bool) {
	d.inFlightMu.Lock()
	defer d.inFlightMu.Unlock()

	ticket, found := d.inFlight[key]
	return ticket, found
}

// Run should be called in a new goroutine. Once ctx is done it stops accepting tasks and hands
// every queued task to the workers before returning, so workers must outlive it.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.doneChan)

	d.log.Info("starting dispatcher loop")
	for {
		select {
		case <-ctx.Done():
			d.shutdown(nil)
			return
		case job := <-d.queue:
			select {
			case worker := <-d.WorkersReady:
				worker <- job
				d.updateQueuedItemsMetric()
			case <-ctx.Done():
				d.shutdown(job)
				return
			}
		}
	}
}

func (d *Dispatcher) Done() <-chan struct{} {
	return d.doneChan
}

// Wait blocks until every dispatched task has finished, or until ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	allDone := make(chan struct{})
	go func() {
		d.outstanding.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) shutdown(pending *Job) {
	d.log.Debug("dispatcher starting shutdown")
	d.setShutdown()

	if pending != nil {
		d.handToWorker(pending)
	}

	for {
		select {
		case job := <-d.queue:
			d.handToWorker(job)
		default:
			d.updateQueuedItemsMetric()
			d.log.Info("dispatcher shutdown finished")
			return
		}
	}
}

func (d *Dispatcher) handToWorker(job *Job) {
	worker := <-d.WorkersReady
	worker <- job
}

func (d *Dispatcher) setShutdown() {
	d.shutdownMutex.Lock()
	defer d.shutdownMutex.Unlock()
	d.shuttingDown = true
}

func (d *Dispatcher) claim(ticket *Ticket) bool {
	if ticket.key == "" {
		return true
	}

	d.inFlightMu.Lock()
	defer d.inFlightMu.Unlock()

	if _, taken := d.inFlight[ticket.key]; taken {
		return false
	}
	d.inFlight[ticket.key] = ticket
	d.metrics.inFlight(len(d.inFlight))
	return true
}

func (d *Dispatcher) release(ticket *Ticket) {
	if ticket.key == "" {
		return
	}

	d.inFlightMu.Lock()
	defer d.inFlightMu.Unlock()

	if current, found := d.inFlight[ticket.key]; found && current == ticket {
		delete(d.inFlight, ticket.key)
	}
	d.metrics.inFlight(len(d.inFlight))
}

func (d *Dispatcher) finish(job *Job, err error) {
	d.release(job.ticket)
	job.ticket.complete(err)
	d.outstanding.Done()

	if err != nil {
		d.log.Warn("task finished with error", logger.TaskIDKey, job.ticket.ID, "task", job.task.Name,
			"error", err)
	}
}

func (d *Dispatcher) updateQueuedItemsMetric() {
	d.metrics.queuedItems(len(d.queue))
}
