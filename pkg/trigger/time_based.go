package trigger

import (
	"sync"
	"time"
)

// TimeBased fires once per interval. It keeps the start of the current and of the last elapsed
// period so the names of both files can be rendered.
type TimeBased struct {
	mu                  sync.Mutex
	pattern             FileNamePattern
	interval            time.Duration
	currentTimeProvider func() time.Time
	currentPeriod       time.Time
	elapsedPeriod       time.Time
}

func NewTimeBased(pattern FileNamePattern, interval time.Duration, currentTimeProvider func() time.Time) *TimeBased {
	current := PeriodStart(currentTimeProvider(), interval)

	return &TimeBased{
		pattern:             pattern,
		interval:            interval,
		currentTimeProvider: currentTimeProvider,
		currentPeriod:       current,
		elapsedPeriod:       current.Add(-interval),
	}
}

// IsTriggeringEvent reports whether now belongs to a later period. When it does, the period it
// was in becomes the elapsed one.
func (t *TimeBased) IsTriggeringEvent(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	period := PeriodStart(now, t.interval)
	if !period.After(t.currentPeriod) {
		return false
	}

	t.elapsedPeriod = t.currentPeriod
	t.currentPeriod = period
	return true
}

func (t *TimeBased) ElapsedPeriodFileName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pattern.RenderWithoutSuffix(t.elapsedPeriod)
}

func (t *TimeBased) CurrentPeriodFileNameWithoutSuffix() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pattern.RenderWithoutSuffix(t.currentPeriod)
}

func (t *TimeBased) CurrentTime() time.Time {
	return t.currentTimeProvider()
}

func (t *TimeBased) Interval() time.Duration {
	return t.interval
}
