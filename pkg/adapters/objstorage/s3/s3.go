package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/jademcosta/logpig/pkg/config"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
)

const Type string = "s3"

const usEast1 = "us-east-1"

var authErrorCodes = map[string]struct{}{
	"AccessDenied":          {},
	"AllAccessDisabled":     {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"ExpiredToken":          {},
	"InvalidToken":          {},
	"TokenRefreshRequired":  {},
}

type uploaderAPI interface {
	Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (
		*manager.UploadOutput, error)
}

type bucketAPI interface {
	CreateBucket(ctx context.Context, params *awss3.CreateBucketInput, optFns ...func(*awss3.Options)) (
		*awss3.CreateBucketOutput, error)
}

type Bucket struct {
	log             *slog.Logger
	uploader        uploaderAPI
	client          bucketAPI
	credentials     aws.CredentialsProvider
	timeoutInMillis int64
}

func New(ctx context.Context, l *slog.Logger, c config.DestinationConfig) (*Bucket, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.RegionName),
	}

	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}

	s3Opts := []func(*awss3.Options){}
	if c.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(c.Endpoint)
		})
	}
	if c.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	client := awss3.NewFromConfig(awsCfg, s3Opts...)

	return &Bucket{
		log:             l.With(logger.ObjStorageTypeKey, Type),
		uploader:        manager.NewUploader(client),
		client:          client,
		credentials:     awsCfg.Credentials,
		timeoutInMillis: c.TimeoutInMillis,
	}, nil
}

func (bucket *Bucket) Type() string {
	return Type
}

// CredentialsResolver exposes the credential chain this bucket signs requests with.
func (bucket *Bucket) CredentialsResolver() *CredentialsResolver {
	return NewCredentialsResolver(bucket.credentials)
}

func (bucket *Bucket) PutObject(ctx context.Context, bucketName, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error opening %s for upload: %w", localPath, err)
	}
	defer f.Close()

	ctx, cancel := bucket.withTimeout(ctx)
	defer cancel()

	_, err = bucket.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("error when uploading to S3: %w", classify(err))
	}

	bucket.log.Debug("object uploaded", "bucket", bucketName, "key", key)
	return nil
}

// CreateBucket treats a bucket that already exists as created, since a concurrent creation is
// the usual cause.
func (bucket *Bucket) CreateBucket(ctx context.Context, bucketName, region string) error {
	input := &awss3.CreateBucketInput{Bucket: aws.String(bucketName)}
	if region != "" && region != usEast1 {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}

	ctx, cancel := bucket.withTimeout(ctx)
	defer cancel()

	_, err := bucket.client.CreateBucket(ctx, input)
	if err != nil {
		var ownedByYou *types.BucketAlreadyOwnedByYou
		var alreadyExists *types.BucketAlreadyExists
		if errors.As(err, &ownedByYou) || errors.As(err, &alreadyExists) {
			bucket.log.Info("bucket already exists", "bucket", bucketName)
			return nil
		}
		return fmt.Errorf("error creating bucket %s: %w", bucketName, classify(err))
	}

	bucket.log.Info("bucket created", "bucket", bucketName, "region", region)
	return nil
}

func (bucket *Bucket) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if bucket.timeoutInMillis <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(bucket.timeoutInMillis)*time.Millisecond)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// classify maps SDK errors onto the domain sentinels. Unknown errors are transient.
func classify(err error) error {
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %w", domain.ErrBucketMissing, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == "NoSuchBucket" {
			return fmt.Errorf("%w: %w", domain.ErrBucketMissing, err)
		}
		if _, isAuth := authErrorCodes[apiErr.ErrorCode()]; isAuth {
			return fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
		}
	}

	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		switch statusErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", domain.ErrBucketMissing, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrTransient, err)
}
