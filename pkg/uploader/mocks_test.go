package uploader_test

import (
	"context"
	"sync"
	"time"

	"github.com/jademcosta/logpig/pkg/domain"
)

func constantTimeProvider(fixedTime time.Time) func() time.Time {
	return func() time.Time {
		return fixedTime
	}
}

type putCall struct {
	bucket    string
	key       string
	localPath string
}

// mockObjStorage answers PutObject with putErrs in order, then with nil.
type mockObjStorage struct {
	mu           sync.Mutex
	putErrs      []error
	putCalls     []putCall
	createErr    error
	createCalls  []string
	createRegion []string
}

func (storage *mockObjStorage) PutObject(_ context.Context, bucket, key, localPath string) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()

	storage.putCalls = append(storage.putCalls, putCall{bucket: bucket, key: key, localPath: localPath})
	if len(storage.putErrs) == 0 {
		return nil
	}
	err := storage.putErrs[0]
	storage.putErrs = storage.putErrs[1:]
	return err
}

func (storage *mockObjStorage) CreateBucket(_ context.Context, bucket, region string) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()

	storage.createCalls = append(storage.createCalls, bucket)
	storage.createRegion = append(storage.createRegion, region)
	return storage.createErr
}

type mockCredentials struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (creds *mockCredentials) Resolve(_ context.Context) error {
	creds.mu.Lock()
	defer creds.mu.Unlock()
	creds.calls++
	return creds.err
}

type mockNotifier struct {
	mu         sync.Mutex
	calledWith []domain.UploadOutcome
	err        error
}

func (n *mockNotifier) Notify(_ context.Context, outcome domain.UploadOutcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calledWith = append(n.calledWith, outcome)
	return n.err
}
