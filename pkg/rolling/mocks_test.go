package rolling_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jademcosta/logpig/pkg/destination"
	"github.com/jademcosta/logpig/pkg/dispatcher"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/shutdown"
)

type fakeTrigger struct {
	elapsed string
	current string
	now     time.Time
}

func (tr *fakeTrigger) ElapsedPeriodFileName() string {
	return tr.elapsed
}

func (tr *fakeTrigger) CurrentPeriodFileNameWithoutSuffix() string {
	return tr.current
}

func (tr *fakeTrigger) CurrentTime() time.Time {
	return tr.now
}

type fakeActiveFile struct {
	name string
}

func (f *fakeActiveFile) ActiveFileName() string {
	return f.name
}

type mockRemover struct {
	mu         sync.Mutex
	calledWith []time.Time
}

func (r *mockRemover) Clean(_ context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calledWith = append(r.calledWith, now)
	return nil
}

type mockUploader struct {
	mu         sync.Mutex
	calledWith []string
	settings   []destination.Settings
	status     domain.OutcomeStatus
	err        error

	// uploads of blockOn signal blockStarted and wait for blockRelease
	blockOn      string
	blockStarted chan struct{}
	blockRelease chan struct{}
}

func (u *mockUploader) blockUploadsOf(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.blockOn = path
	u.blockStarted = make(chan struct{})
	u.blockRelease = make(chan struct{})
}

func (u *mockUploader) Upload(_ context.Context, localPath string, settings destination.Settings) domain.UploadOutcome {
	u.mu.Lock()
	u.calledWith = append(u.calledWith, localPath)
	u.settings = append(u.settings, settings)
	outcome := domain.UploadOutcome{LocalPath: localPath, Attempts: 1, Status: u.status, Err: u.err}
	blocked := u.blockOn != "" && localPath == u.blockOn
	started, release := u.blockStarted, u.blockRelease
	u.mu.Unlock()

	if blocked {
		close(started)
		<-release
	}
	return outcome
}

func (u *mockUploader) uploadsOf(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	count := 0
	for _, called := range u.calledWith {
		if called == path {
			count++
		}
	}
	return count
}

func (u *mockUploader) paths() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	result := make([]string, len(u.calledWith))
	copy(result, u.calledWith)
	return result
}

type mockRegistrar struct {
	mu    sync.Mutex
	names []string
	hooks []shutdown.Handle
}

func (r *mockRegistrar) Register(name string, handle shutdown.Handle) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.hooks = append(r.hooks, handle)
	return func() {}
}

// failingDispatcher rejects every task.
type failingDispatcher struct {
	err error
}

func (d *failingDispatcher) Dispatch(_ dispatcher.Task) (*dispatcher.Ticket, error) {
	return nil, d.err
}

func (d *failingDispatcher) InFlight(_ string) (*dispatcher.Ticket, bool) {
	return nil, false
}

// failingCompressor fails every compression without touching the source.
type failingCompressor struct{}

func (c *failingCompressor) Compress(_, _, _ string) error {
	return errors.New("disk full")
}
