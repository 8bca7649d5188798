package trigger_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jademcosta/logpig/pkg/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestPatternRendering(t *testing.T) {
	at := time.Date(2024, time.March, 7, 15, 4, 5, 0, time.UTC)

	testCases := []struct {
		pattern       string
		layout        string
		render        string
		withoutSuffix string
		glob          string
	}{
		{
			pattern: "/var/log/app-{date}.log.gz", layout: "2006-01-02",
			render: "/var/log/app-2024-03-07.log.gz", withoutSuffix: "/var/log/app-2024-03-07.log",
			glob: "/var/log/app-*.log.gz",
		},
		{
			pattern: "/var/log/app-{date}.log.ZIP", layout: "2006-01-02T15",
			render: "/var/log/app-2024-03-07T15.log.ZIP", withoutSuffix: "/var/log/app-2024-03-07T15.log",
			glob: "/var/log/app-*.log.ZIP",
		},
		{
			pattern: "app.{date}.log", layout: "20060102",
			render: "app.20240307.log", withoutSuffix: "app.20240307.log",
			glob: "app.*.log",
		},
	}

	for _, tc := range testCases {
		p := trigger.NewFileNamePattern(tc.pattern, tc.layout)
		assert.Equal(t, tc.render, p.Render(at))
		assert.Equal(t, tc.withoutSuffix, p.RenderWithoutSuffix(at))
		assert.Equal(t, tc.glob, p.Glob())
	}
}

func TestPatternParseDate(t *testing.T) {
	p := trigger.NewFileNamePattern("/var/log/app-{date}.log.gz", "2006-01-02")

	parsed, ok := p.ParseDate("/var/log/app-2024-03-07.log.gz", time.UTC)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), parsed)

	_, ok = p.ParseDate("/var/log/app-yesterday.log.gz", time.UTC)
	assert.False(t, ok, "names that do not hold a date should not parse")

	_, ok = p.ParseDate("/var/log/other-2024-03-07.log.gz", time.UTC)
	assert.False(t, ok)

	_, ok = p.ParseDate("/var/log/app-.gz", time.UTC)
	assert.False(t, ok)
}

func TestPeriodStart(t *testing.T) {
	at := time.Date(2024, time.March, 7, 15, 34, 5, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), trigger.PeriodStart(at, 24*time.Hour))
	assert.Equal(t, time.Date(2024, time.March, 7, 15, 0, 0, 0, time.UTC), trigger.PeriodStart(at, time.Hour))
	assert.Equal(t, time.Date(2024, time.March, 7, 15, 30, 0, 0, time.UTC), trigger.PeriodStart(at, 15*time.Minute))
	assert.Equal(t, time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC), trigger.PeriodStart(at, 6*time.Hour))
}

func TestTimeBasedTriggersOncePerPeriod(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)}
	p := trigger.NewFileNamePattern("/var/log/app-{date}.log.gz", "2006-01-02")
	sut := trigger.NewTimeBased(p, 24*time.Hour, clock.Now)

	assert.Equal(t, "/var/log/app-2024-03-07.log", sut.CurrentPeriodFileNameWithoutSuffix())
	assert.False(t, sut.IsTriggeringEvent(time.Date(2024, time.March, 7, 23, 59, 59, 0, time.UTC)))

	next := time.Date(2024, time.March, 8, 0, 0, 1, 0, time.UTC)
	clock.Set(next)
	assert.True(t, sut.IsTriggeringEvent(next))
	assert.False(t, sut.IsTriggeringEvent(next), "a period should trigger only once")

	assert.Equal(t, "/var/log/app-2024-03-07.log", sut.ElapsedPeriodFileName())
	assert.Equal(t, "/var/log/app-2024-03-08.log", sut.CurrentPeriodFileNameWithoutSuffix())
	assert.Equal(t, next, sut.CurrentTime())
	assert.Equal(t, 24*time.Hour, sut.Interval())
}

func TestTimeBasedAfterSkippedPeriods(t *testing.T) {
	start := time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)
	p := trigger.NewFileNamePattern("app-{date}.log", "2006-01-02")
	sut := trigger.NewTimeBased(p, 24*time.Hour, func() time.Time { return start })

	assert.True(t, sut.IsTriggeringEvent(time.Date(2024, time.March, 10, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, "app-2024-03-07.log", sut.ElapsedPeriodFileName(),
		"the elapsed file is the one that was being written")
	assert.Equal(t, "app-2024-03-10.log", sut.CurrentPeriodFileNameWithoutSuffix())
}

func TestWithCounterKeepsNamesParseable(t *testing.T) {
	testCases := []struct {
		pattern  string
		layout   string
		name     string
		expected string
		archive  string
	}{
		{
			pattern: "/var/log/app-{date}.log.gz", layout: "2006-01-02",
			name: "/var/log/app-2024-03-07.log", expected: "/var/log/app-2024-03-07.1.log",
			archive: "/var/log/app-2024-03-07.1.log.gz",
		},
		{
			pattern: "/var/log/app.{date}.gz", layout: "20060102",
			name: "/var/log/app.20240307", expected: "/var/log/app.20240307.1",
			archive: "/var/log/app.20240307.1.gz",
		},
		{
			pattern: "/var/log/app-{date}", layout: "2006.01.02",
			name: "/var/log/app-2024.03.07", expected: "/var/log/app-2024.03.07.1",
			archive: "/var/log/app-2024.03.07.1",
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, trigger.WithCounter(tc.name, 1))

		p := trigger.NewFileNamePattern(tc.pattern, tc.layout)
		matched, err := filepath.Match(p.Glob(), tc.archive)
		require.NoError(t, err)
		assert.True(t, matched, "%s should match %s", tc.archive, p.Glob())

		parsed, ok := p.ParseDate(tc.archive, time.UTC)
		assert.True(t, ok, "%s should carry a date", tc.archive)
		assert.Equal(t, time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), parsed)
	}

	assert.Equal(t, "/var/log/app-2024-03-07.12.log", trigger.WithCounter("/var/log/app-2024-03-07.log", 12))
}
