package notifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jademcosta/logpig/pkg/adapters/notifier"
	"github.com/jademcosta/logpig/pkg/config"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var llog = logger.NewDummy()

type mockNotifier struct {
	mu         sync.Mutex
	calledWith []domain.UploadOutcome
	err        error
}

func (m *mockNotifier) Notify(_ context.Context, outcome domain.UploadOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calledWith = append(m.calledWith, outcome)
	return m.err
}

func (m *mockNotifier) Type() string {
	return "mock"
}

func (m *mockNotifier) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calledWith)
}

func (m *mockNotifier) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func TestNewCreatesNoopByDefault(t *testing.T) {
	turnOn := true
	sut, err := notifier.New(context.Background(), llog, prometheus.NewRegistry(), config.NotificationConfig{
		Type:           "noop",
		CircuitBreaker: config.CircuitBreakerConfig{TurnOn: &turnOn, OpenInterval: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, "noop", sut.Type())
	assert.NoError(t, sut.Notify(context.Background(), domain.UploadOutcome{Status: domain.OutcomeUploaded}))
}

func TestNewFailsOnUnknownType(t *testing.T) {
	_, err := notifier.New(context.Background(), llog, prometheus.NewRegistry(), config.NotificationConfig{
		Type: "kafka",
	})
	assert.Error(t, err)
}

func TestNewFailsOnSQSWithoutURL(t *testing.T) {
	_, err := notifier.New(context.Background(), llog, prometheus.NewRegistry(), config.NotificationConfig{
		Type:   "sqs",
		Config: map[string]interface{}{"region": "us-east-1"},
	})
	assert.Error(t, err)
}

func TestNewCreatesSQSNotifier(t *testing.T) {
	sut, err := notifier.New(context.Background(), llog, prometheus.NewRegistry(), config.NotificationConfig{
		Type:   "sqs",
		Config: map[string]interface{}{"url": "http://localhost:4566/000000000000/uploads", "region": "us-east-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sqs", sut.Type())
}

func TestMetricsWrapperDelegates(t *testing.T) {
	next := &mockNotifier{err: errors.New("boom")}
	sut := notifier.NewNotifierWithMetrics(next, prometheus.NewRegistry())

	err := sut.Notify(context.Background(), domain.UploadOutcome{LocalPath: "a"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, next.calls())
	assert.Equal(t, "mock", sut.Type())
}

func TestCircuitBreakerOpensAfterAFailureAndClosesAfterTheInterval(t *testing.T) {
	openInterval := 50 * time.Millisecond
	next := &mockNotifier{err: errors.New("queue unavailable")}
	sut := notifier.NewNotifierWithCircuitBreaker(llog, next, prometheus.NewRegistry(), openInterval)

	err := sut.Notify(context.Background(), domain.UploadOutcome{LocalPath: "a"})
	assert.ErrorContains(t, err, "queue unavailable")
	assert.Equal(t, 1, next.calls())

	err = sut.Notify(context.Background(), domain.UploadOutcome{LocalPath: "b"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState, "an open circuit should reject calls")
	assert.Equal(t, 1, next.calls(), "the wrapped notifier should not be called while open")

	next.setErr(nil)
	time.Sleep(openInterval + 20*time.Millisecond)

	err = sut.Notify(context.Background(), domain.UploadOutcome{LocalPath: "c"})
	assert.NoError(t, err, "after the open interval a call should go through")
	assert.Equal(t, 2, next.calls())

	err = sut.Notify(context.Background(), domain.UploadOutcome{LocalPath: "d"})
	assert.NoError(t, err, "the circuit should be closed again")
	assert.Equal(t, 3, next.calls())
}
