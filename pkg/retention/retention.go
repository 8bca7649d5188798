package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/jademcosta/logpig/pkg/trigger"
)

const ComponentName = "retention"

// Remover deletes archives whose period is more than maxHistory periods behind the current one.
type Remover struct {
	l          *slog.Logger
	pattern    trigger.FileNamePattern
	interval   time.Duration
	maxHistory int
	claimed    func(path string) bool
}

// New creates a remover. Files for which claimed returns true are never deleted.
func New(
	l *slog.Logger, pattern trigger.FileNamePattern, interval time.Duration, maxHistory int,
	claimed func(path string) bool,
) *Remover {

	if claimed == nil {
		claimed = func(_ string) bool { return false }
	}

	return &Remover{
		l:          l.With(logger.ComponentKey, ComponentName),
		pattern:    pattern,
		interval:   interval,
		maxHistory: maxHistory,
		claimed:    claimed,
	}
}

func (r *Remover) Clean(ctx context.Context, now time.Time) error {
	if r.maxHistory <= 0 {
		return nil
	}

	matches, err := filepath.Glob(r.pattern.Glob())
	if err != nil {
		return fmt.Errorf("error listing archives: %w", err)
	}

	cutoff := trigger.PeriodStart(now, r.interval).Add(-time.Duration(r.maxHistory) * r.interval)

	var errs []error
	for _, path := range matches {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		archiveDate, ok := r.pattern.ParseDate(path, now.Location())
		if !ok || !archiveDate.Before(cutoff) {
			continue
		}

		if r.claimed(path) {
			r.l.Debug("skipping archive claimed by an in-flight task", logger.FileKey, path)
			continue
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("error removing %s: %w", path, err))
			continue
		}
		r.l.Info("removed expired archive", logger.FileKey, path)
	}

	return errors.Join(errs...)
}
