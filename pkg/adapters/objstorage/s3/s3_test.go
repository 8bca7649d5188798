package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/jademcosta/logpig/pkg/config"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockedAWSS3Uploader struct {
	mu         sync.Mutex
	calledWith []*awss3.PutObjectInput
	bodies     []string
	hadTimeout []bool
	err        error
}

func (mock *mockedAWSS3Uploader) Upload(ctx context.Context, input *awss3.PutObjectInput,
	_ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {

	mock.mu.Lock()
	defer mock.mu.Unlock()

	body, _ := io.ReadAll(input.Body)
	_, hasDeadline := ctx.Deadline()

	mock.calledWith = append(mock.calledWith, input)
	mock.bodies = append(mock.bodies, string(body))
	mock.hadTimeout = append(mock.hadTimeout, hasDeadline)
	if mock.err != nil {
		return nil, mock.err
	}
	return &manager.UploadOutput{}, nil
}

type mockedBucketClient struct {
	mu         sync.Mutex
	calledWith []*awss3.CreateBucketInput
	err        error
}

func (mock *mockedBucketClient) CreateBucket(_ context.Context, params *awss3.CreateBucketInput,
	_ ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error) {

	mock.mu.Lock()
	defer mock.mu.Unlock()

	mock.calledWith = append(mock.calledWith, params)
	if mock.err != nil {
		return nil, mock.err
	}
	return &awss3.CreateBucketOutput{}, nil
}

type statusError struct {
	status int
}

func (e *statusError) Error() string       { return "http error" }
func (e *statusError) HTTPStatusCode() int { return e.status }

func newTestBucket(t *testing.T, conf config.DestinationConfig) (*Bucket, *mockedAWSS3Uploader, *mockedBucketClient) {
	t.Helper()
	if conf.RegionName == "" {
		conf.RegionName = "us-east-1"
	}

	sut, err := New(context.Background(), logger.NewDummy(), conf)
	require.NoError(t, err, "should not error on New")

	uploader := &mockedAWSS3Uploader{}
	client := &mockedBucketClient{}
	sut.uploader = uploader
	sut.client = client
	return sut, uploader, client
}

func TestPutObjectSendsFileContentToKey(t *testing.T) {
	sut, uploader, _ := newTestBucket(t, config.DestinationConfig{})

	localPath := filepath.Join(t.TempDir(), "app.log.gz")
	require.NoError(t, os.WriteFile(localPath, []byte("compressed bytes"), 0o644))

	err := sut.PutObject(context.Background(), "my-bucket", "logs/2024/03/07/app.log.gz", localPath)
	require.NoError(t, err)

	require.Len(t, uploader.calledWith, 1, "should have called the uploader once")
	input := uploader.calledWith[0]
	assert.Equal(t, "my-bucket", *input.Bucket)
	assert.Equal(t, "logs/2024/03/07/app.log.gz", *input.Key)
	assert.Equal(t, "compressed bytes", uploader.bodies[0], "the data sent to S3 should be the file content")
	assert.False(t, uploader.hadTimeout[0], "no timeout should be set when none is configured")
}

func TestPutObjectAppliesConfiguredTimeout(t *testing.T) {
	sut, uploader, _ := newTestBucket(t, config.DestinationConfig{TimeoutInMillis: 1500})

	localPath := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(localPath, []byte("x"), 0o644))

	require.NoError(t, sut.PutObject(context.Background(), "my-bucket", "k", localPath))
	assert.True(t, uploader.hadTimeout[0], "the upload context should carry the configured timeout")
}

func TestPutObjectFailsWithoutCallingS3WhenFileIsMissing(t *testing.T) {
	sut, uploader, _ := newTestBucket(t, config.DestinationConfig{})

	err := sut.PutObject(context.Background(), "my-bucket", "k", filepath.Join(t.TempDir(), "gone.log"))
	require.Error(t, err)
	assert.Empty(t, uploader.calledWith)
}

func TestPutObjectClassifiesErrors(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "typed no such bucket", err: &types.NoSuchBucket{}, expected: domain.ErrBucketMissing},
		{name: "generic no such bucket", err: &smithy.GenericAPIError{Code: "NoSuchBucket"},
			expected: domain.ErrBucketMissing},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"},
			expected: domain.ErrAuthentication},
		{name: "invalid key", err: &smithy.GenericAPIError{Code: "InvalidAccessKeyId"},
			expected: domain.ErrAuthentication},
		{name: "status 404", err: &statusError{status: 404}, expected: domain.ErrBucketMissing},
		{name: "status 403", err: &statusError{status: 403}, expected: domain.ErrAuthentication},
		{name: "status 500", err: &statusError{status: 500}, expected: domain.ErrTransient},
		{name: "throttling", err: &smithy.GenericAPIError{Code: "SlowDown"}, expected: domain.ErrTransient},
		{name: "unknown", err: errors.New("connection reset"), expected: domain.ErrTransient},
	}

	localPath := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(localPath, []byte("x"), 0o644))

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sut, uploader, _ := newTestBucket(t, config.DestinationConfig{})
			uploader.err = tc.err

			err := sut.PutObject(context.Background(), "my-bucket", "k", localPath)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expected)
			assert.ErrorIs(t, err, tc.err, "the original error should still be reachable")
		})
	}
}

func TestCreateBucketSetsLocationConstraintOutsideUsEast1(t *testing.T) {
	sut, _, client := newTestBucket(t, config.DestinationConfig{})

	require.NoError(t, sut.CreateBucket(context.Background(), "my-bucket", "eu-west-1"))
	require.NoError(t, sut.CreateBucket(context.Background(), "other-bucket", "us-east-1"))

	require.Len(t, client.calledWith, 2)
	assert.Equal(t, "my-bucket", *client.calledWith[0].Bucket)
	require.NotNil(t, client.calledWith[0].CreateBucketConfiguration)
	assert.Equal(t, types.BucketLocationConstraint("eu-west-1"),
		client.calledWith[0].CreateBucketConfiguration.LocationConstraint)

	assert.Nil(t, client.calledWith[1].CreateBucketConfiguration,
		"us-east-1 does not accept a location constraint")
}

func TestCreateBucketAcceptsExistingBucket(t *testing.T) {
	sut, _, client := newTestBucket(t, config.DestinationConfig{})

	client.err = &types.BucketAlreadyOwnedByYou{}
	assert.NoError(t, sut.CreateBucket(context.Background(), "my-bucket", "us-east-1"))

	client.err = &types.BucketAlreadyExists{}
	assert.NoError(t, sut.CreateBucket(context.Background(), "my-bucket", "us-east-1"))
}

func TestCreateBucketClassifiesErrors(t *testing.T) {
	sut, _, client := newTestBucket(t, config.DestinationConfig{})

	client.err = &smithy.GenericAPIError{Code: "AccessDenied"}
	err := sut.CreateBucket(context.Background(), "my-bucket", "us-east-1")
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	client.err = errors.New("timeout")
	err = sut.CreateBucket(context.Background(), "my-bucket", "us-east-1")
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestCredentialsResolver(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resolver := NewCredentialsResolver(credentials.NewStaticCredentialsProvider("key", "secret", ""))
	assert.NoError(t, resolver.Resolve(ctx))

	resolver = NewCredentialsResolver(credentials.NewStaticCredentialsProvider("", "", ""))
	assert.ErrorIs(t, resolver.Resolve(ctx), domain.ErrAuthentication)

	resolver = NewCredentialsResolver(nil)
	assert.ErrorIs(t, resolver.Resolve(ctx), domain.ErrAuthentication)
}

func TestBucketUsesStaticKeysFromConfig(t *testing.T) {
	sut, _, _ := newTestBucket(t, config.DestinationConfig{AccessKey: "my-key", SecretKey: "my-secret"})

	assert.NoError(t, sut.CredentialsResolver().Resolve(context.Background()))
	assert.Equal(t, Type, sut.Type())
}
