package dispatcher

import (
	"context"
	"fmt"
)

// Ticket is the handle of one dispatched task. Err is only meaningful after Done is closed.
type Ticket struct {
	ID   string
	key  string
	done chan struct{}
	err  error
}

func newTicket(id string, key string) *Ticket {
	return &Ticket{
		ID:   id,
		key:  key,
		done: make(chan struct{}),
	}
}

func (t *Ticket) Key() string {
	return t.key
}

func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes and returns its error, or until ctx is done.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return fmt.Errorf("waiting for task %s: %w", t.ID, ctx.Err())
	}
}

func (t *Ticket) complete(err error) {
	t.err = err
	close(t.done)
}

type Task struct {
	// Key is claimed while the task is queued or running. Empty means no claim.
	Key  string
	Name string
	Run  func(ctx context.Context) error
}

// Job is what workers receive: a task together with its ticket.
type Job struct {
	task   Task
	ticket *Ticket
	finish func(*Job, error)
}

func (j *Job) Ticket() *Ticket {
	return j.ticket
}

func (j *Job) Name() string {
	return j.task.Name
}

// Execute runs the task and settles its ticket. A panicking task settles the ticket with an error.
func (j *Job) Execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", j.task.Name, r)
		}
		j.finish(j, err)
	}()

	return j.task.Run(ctx)
}
