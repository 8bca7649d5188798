// Package appender owns the active log file. It appends every write to it and, when the trigger
// says the period elapsed, closes it and hands the rollover to the roller.
package appender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jademcosta/logpig/pkg/logger"
)

const (
	ComponentName = "appender"
	filePerm      = 0o644
	dirPerm       = 0o755
)

var ErrClosed = errors.New("appender is closed")

type Trigger interface {
	IsTriggeringEvent(now time.Time) bool
	CurrentPeriodFileNameWithoutSuffix() string
}

type Roller interface {
	Rollover(ctx context.Context) error
}

type Appender struct {
	l                   *slog.Logger
	mu                  sync.Mutex
	rawFile             string
	trigger             Trigger
	roller              Roller
	currentTimeProvider func() time.Time
	file                *os.File
	closed              bool
}

// New creates an appender. When rawFile is empty the active file is named after the current
// period. The file is only created on the first write.
func New(l *slog.Logger, rawFile string, trigger Trigger, currentTimeProvider func() time.Time) *Appender {
	return &Appender{
		l:                   l.With(logger.ComponentKey, ComponentName),
		rawFile:             rawFile,
		trigger:             trigger,
		currentTimeProvider: currentTimeProvider,
	}
}

// SetRoller must be called before the first write.
func (a *Appender) SetRoller(roller Roller) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roller = roller
}

// ActiveFileName is the path writes currently go to.
func (a *Appender) ActiveFileName() string {
	if a.rawFile != "" {
		return a.rawFile
	}
	return a.trigger.CurrentPeriodFileNameWithoutSuffix()
}

// Write appends p to the active file, rolling it first if its period is over. Rollover failures
// are logged and never returned.
func (a *Appender) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, ErrClosed
	}

	a.rollIfNeeded(context.Background())

	if err := a.open(); err != nil {
		return 0, err
	}

	written, err := a.file.Write(p)
	if err != nil {
		return written, fmt.Errorf("error writing to %s: %w", a.file.Name(), err)
	}
	return written, nil
}

// Tick rolls the active file when its period elapsed, so quiet streams are rolled too.
func (a *Appender) Tick(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.rollIfNeeded(ctx)
}

// Close closes the active file. Writes after it fail with ErrClosed.
func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	return a.closeFile()
}

func (a *Appender) rollIfNeeded(ctx context.Context) {
	if !a.trigger.IsTriggeringEvent(a.currentTimeProvider()) {
		return
	}

	if err := a.closeFile(); err != nil {
		a.l.Error("error closing file before rollover", "error", err)
	}

	if a.roller == nil {
		return
	}

	if err := a.roller.Rollover(ctx); err != nil {
		a.l.Error("rollover failed", "error", err)
	}
}

func (a *Appender) open() error {
	if a.file != nil {
		return nil
	}

	name := a.ActiveFileName()
	if err := os.MkdirAll(filepath.Dir(name), dirPerm); err != nil {
		return fmt.Errorf("error creating directory of %s: %w", name, err)
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", name, err)
	}

	a.l.Debug("active file opened", logger.FileKey, name)
	a.file = f
	return nil
}

func (a *Appender) closeFile() error {
	if a.file == nil {
		return nil
	}

	err := a.file.Close()
	a.file = nil
	return err
}
