package uploader

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jademcosta/logpig/pkg/destination"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ComponentName = "uploader"

type ObjStorage interface {
	PutObject(ctx context.Context, bucket, key, localPath string) error
	CreateBucket(ctx context.Context, bucket, region string) error
}

type CredentialsResolver interface {
	Resolve(ctx context.Context) error
}

type Notifier interface {
	Notify(ctx context.Context, outcome domain.UploadOutcome) error
}

type Uploader struct {
	l                   *slog.Logger
	storage             ObjStorage
	credentials         CredentialsResolver
	notifier            Notifier
	tracer              trace.Tracer
	currentTimeProvider func() time.Time
}

func New(
	l *slog.Logger, storage ObjStorage, credentials CredentialsResolver, notifier Notifier,
	tracer trace.Tracer, metricRegistry *prometheus.Registry, currentTimeProvider func() time.Time,
) *Uploader {

	initializeMetrics(metricRegistry)

	return &Uploader{
		l:                   l.With(logger.ComponentKey, ComponentName),
		storage:             storage,
		credentials:         credentials,
		notifier:            notifier,
		tracer:              tracer,
		currentTimeProvider: currentTimeProvider,
	}
}

// Upload never returns an error: every result, including failures, is described by the outcome,
// which is also logged, counted and notified.
func (u *Uploader) Upload(ctx context.Context, localPath string, settings destination.Settings) domain.UploadOutcome {
	ctx, span := u.tracer.Start(ctx, "upload", trace.WithAttributes(
		attribute.String("upload.local_path", localPath),
		attribute.String("upload.bucket", settings.BucketName),
	))
	defer span.End()

	outcome := u.upload(ctx, localPath, settings)

	span.SetAttributes(
		attribute.String("upload.outcome", outcome.Status.String()),
		attribute.Int("upload.attempts", outcome.Attempts),
	)
	if !outcome.Succeeded() {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Status.String())
	}

	u.report(outcome)

	if err := u.notifier.Notify(ctx, outcome); err != nil {
		u.l.Warn("failed to notify upload outcome", logger.FileKey, localPath, "error", err)
	}
	return outcome
}

func (u *Uploader) upload(ctx context.Context, localPath string, settings destination.Settings) domain.UploadOutcome {
	outcome := domain.UploadOutcome{
		LocalPath: localPath,
		Bucket:    settings.BucketName,
		Region:    settings.RegionName,
	}
	fileName := filepath.Base(localPath)

	if settings.MockPut {
		outcome.Key = domain.RemoteKey(settings.FolderName, u.currentTimeProvider(), fileName)
		outcome.Attempts = 1
		outcome.Status = domain.OutcomeMocked
		return outcome
	}

	if err := u.credentials.Resolve(ctx); err != nil {
		outcome.Status = domain.OutcomeFatal
		outcome.Err = err
		return outcome
	}

	bucketCreationTried := false
	var lastErr error

	for attempt := 1; attempt <= settings.RetryCount; {
		outcome.Key = domain.RemoteKey(settings.FolderName, u.currentTimeProvider(), fileName)
		outcome.Attempts = attempt

		err := u.storage.PutObject(ctx, settings.BucketName, outcome.Key, localPath)
		switch {
		case err == nil:
			outcome.Status = domain.OutcomeUploaded
			return outcome

		case errors.Is(err, domain.ErrAuthentication):
			outcome.Status = domain.OutcomeFatal
			outcome.Err = err
			return outcome

		case errors.Is(err, domain.ErrBucketMissing) && !bucketCreationTried:
			bucketCreationTried = true
			u.l.Info("bucket does not exist, creating it", "bucket", settings.BucketName,
				"region", settings.RegionName)
			reportBucketCreation()

			createErr := u.storage.CreateBucket(ctx, settings.BucketName, settings.RegionName)
			if createErr == nil {
				// the attempt that found the bucket missing is not counted
				continue
			}

			if errors.Is(createErr, domain.ErrAuthentication) {
				outcome.Status = domain.OutcomeFatal
				outcome.Err = createErr
				return outcome
			}
			lastErr = createErr

		default:
			lastErr = err
		}

		u.l.Warn("upload attempt failed", logger.FileKey, localPath, "attempt", attempt,
			"max_attempts", settings.RetryCount, "error", lastErr)
		attempt++
	}

	if lastErr == nil {
		lastErr = errors.New("no upload attempt was allowed")
	}

	outcome.Status = domain.OutcomeRetriesExhausted
	outcome.Err = &domain.RetryExhaustedError{Path: localPath, Attempts: outcome.Attempts, Err: lastErr}
	return outcome
}

func (u *Uploader) report(outcome domain.UploadOutcome) {
	reportOutcome(outcome)

	switch outcome.Status {
	case domain.OutcomeUploaded:
		u.l.Info("file uploaded", logger.FileKey, outcome.LocalPath, "bucket", outcome.Bucket,
			"key", outcome.Key, "attempts", outcome.Attempts)
	case domain.OutcomeMocked:
		u.l.Info("mock mode, upload skipped", logger.FileKey, outcome.LocalPath, "bucket", outcome.Bucket,
			"key", outcome.Key)
	case domain.OutcomeFatal:
		u.l.Error("upload failed with a non-retryable error", logger.FileKey, outcome.LocalPath,
			"bucket", outcome.Bucket, "error", outcome.Err)
	case domain.OutcomeRetriesExhausted:
		u.l.Error("upload retries exhausted, file kept locally", logger.FileKey, outcome.LocalPath,
			"bucket", outcome.Bucket, "attempts", outcome.Attempts, "error", outcome.Err)
	}
}
