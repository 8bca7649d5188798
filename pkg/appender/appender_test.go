package appender_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jademcosta/logpig/pkg/appender"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/jademcosta/logpig/pkg/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var llog = logger.NewDummy()

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// mockRoller records which files existed, and with what content, when it was called.
type mockRoller struct {
	mu        sync.Mutex
	calls     int
	observe   func()
	returnErr error
}

func (r *mockRoller) Rollover(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.observe != nil {
		r.observe()
	}
	return r.returnErr
}

func (r *mockRoller) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTimeBased(dir string, clock *fakeClock) *trigger.TimeBased {
	pattern := trigger.NewFileNamePattern(filepath.Join(dir, "app-{date}.log.gz"), "2006-01-02")
	return trigger.NewTimeBased(pattern, 24*time.Hour, clock.Now)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestWritesGoToTheRawFile(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, time.March, 6, 10, 0, 0, 0, time.Local)}
	rawFile := filepath.Join(dir, "nested", "app.log")

	sut := appender.New(llog, rawFile, newTimeBased(dir, clock), clock.Now)
	sut.SetRoller(&mockRoller{})

	_, err := sut.Write([]byte("line 1\n"))
	require.NoError(t, err)
	_, err = sut.Write([]byte("line 2\n"))
	require.NoError(t, err)
	require.NoError(t, sut.Close())

	assert.Equal(t, rawFile, sut.ActiveFileName())
	assert.Equal(t, "line 1\nline 2\n", readFile(t, rawFile))
}

func TestWithoutRawFileWritesGoToCurrentPeriodFile(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, time.March, 6, 10, 0, 0, 0, time.Local)}

	sut := appender.New(llog, "", newTimeBased(dir, clock), clock.Now)
	sut.SetRoller(&mockRoller{})

	_, err := sut.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, sut.Close())

	expected := filepath.Join(dir, "app-2024-03-06.log")
	assert.Equal(t, expected, sut.ActiveFileName(), "the compression suffix should not be part of the active name")
	assert.Equal(t, "hello\n", readFile(t, expected))
}

func TestRolloverHappensBeforeTheFirstWriteOfTheNewPeriod(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, time.March, 6, 23, 59, 0, 0, time.Local)}
	rawFile := filepath.Join(dir, "app.log")

	var contentOnRollover string
	roller := &mockRoller{}
	roller.observe = func() {
		content, err := os.ReadFile(rawFile)
		if err == nil {
			contentOnRollover = string(content)
		}
		os.Remove(rawFile) //nolint:errcheck
	}

	sut := appender.New(llog, rawFile, newTimeBased(dir, clock), clock.Now)
	sut.SetRoller(roller)

	_, err := sut.Write([]byte("old day\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, roller.callCount())

	clock.Set(time.Date(2024, time.March, 7, 0, 0, 1, 0, time.Local))
	_, err = sut.Write([]byte("new day\n"))
	require.NoError(t, err)
	require.NoError(t, sut.Close())

	assert.Equal(t, 1, roller.callCount())
	assert.Equal(t, "old day\n", contentOnRollover, "the old period content should be complete on rollover")
	assert.Equal(t, "new day\n", readFile(t, rawFile), "a fresh file should be opened after the rollover")
}

func TestTickRollsQuietStreams(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, time.March, 6, 12, 0, 0, 0, time.Local)}
	roller := &mockRoller{}

	sut := appender.New(llog, "", newTimeBased(dir, clock), clock.Now)
	sut.SetRoller(roller)

	sut.Tick(context.Background())
	assert.Equal(t, 0, roller.callCount())

	clock.Set(time.Date(2024, time.March, 7, 0, 0, 1, 0, time.Local))
	sut.Tick(context.Background())
	sut.Tick(context.Background())
	assert.Equal(t, 1, roller.callCount(), "only one rollover per elapsed period")
	assert.Equal(t, filepath.Join(dir, "app-2024-03-07.log"), sut.ActiveFileName())
}

func TestRolloverErrorsDoNotReachTheWriter(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, time.March, 6, 12, 0, 0, 0, time.Local)}
	roller := &mockRoller{returnErr: errors.New("queue is full")}

	sut := appender.New(llog, "", newTimeBased(dir, clock), clock.Now)
	sut.SetRoller(roller)

	clock.Set(time.Date(2024, time.March, 7, 0, 0, 1, 0, time.Local))
	_, err := sut.Write([]byte("still written\n"))
	require.NoError(t, err)
	require.NoError(t, sut.Close())

	assert.Equal(t, 1, roller.callCount())
	assert.Equal(t, "still written\n", readFile(t, filepath.Join(dir, "app-2024-03-07.log")))
}

func TestWritesAfterCloseFail(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, time.March, 6, 12, 0, 0, 0, time.Local)}

	sut := appender.New(llog, "", newTimeBased(dir, clock), clock.Now)
	sut.SetRoller(&mockRoller{})

	_, err := sut.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, sut.Close())
	require.NoError(t, sut.Close(), "closing twice is allowed")

	_, err = sut.Write([]byte("y"))
	assert.ErrorIs(t, err, appender.ErrClosed)
}

func TestConcurrentWritesAreNotInterleaved(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, time.March, 6, 12, 0, 0, 0, time.Local)}
	rawFile := filepath.Join(dir, "app.log")

	sut := appender.New(llog, rawFile, newTimeBased(dir, clock), clock.Now)
	sut.SetRoller(&mockRoller{})

	line := "0123456789abcdefghijklmnopqrstuvwxyz\n"
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := sut.Write([]byte(line))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, sut.Close())

	content := readFile(t, rawFile)
	assert.Len(t, content, 1000*len(line))
	for i := 0; i < 1000; i++ {
		assert.Equal(t, line, content[i*len(line):(i+1)*len(line)])
	}
}
