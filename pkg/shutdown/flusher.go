package shutdown

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jademcosta/logpig/pkg/logger"
)

const ComponentName = "shutdown_flusher"

type Handle func(ctx context.Context) error

type hook struct {
	name   string
	handle Handle
}

// Flusher runs the final flush of every registered component, once.
type Flusher struct {
	l       *slog.Logger
	mu      sync.Mutex
	hooks   []hook
	flushed bool
}

func NewFlusher(l *slog.Logger) *Flusher {
	return &Flusher{
		l: l.With(logger.ComponentKey, ComponentName),
	}
}

// Register adds handle under name. Registering a name twice keeps the first handle.
func (f *Flusher) Register(name string, handle Handle) (unregister func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	unregister = func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, h := range f.hooks {
			if h.name == name {
				f.hooks = append(f.hooks[:i], f.hooks[i+1:]...)
				return
			}
		}
	}

	for _, h := range f.hooks {
		if h.name == name {
			f.l.Debug("shutdown hook already registered", "name", name)
			return unregister
		}
	}

	f.hooks = append(f.hooks, hook{name: name, handle: handle})
	return unregister
}

// Flush runs every hook synchronously, in registration order. Errors and panics are logged and
// never returned. Calls after the first one do nothing.
func (f *Flusher) Flush(ctx context.Context) {
	f.mu.Lock()
	if f.flushed {
		f.mu.Unlock()
		return
	}
	f.flushed = true
	hooks := make([]hook, len(f.hooks))
	copy(hooks, f.hooks)
	f.mu.Unlock()

	for _, h := range hooks {
		f.l.Info("running shutdown hook", "name", h.name)
		if err := runHook(ctx, h); err != nil {
			f.l.Error("shutdown hook failed", "name", h.name, "error", err)
			continue
		}
		f.l.Info("shutdown hook finished", "name", h.name)
	}
}

func runHook(ctx context.Context, h hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return h.handle(ctx)
}
