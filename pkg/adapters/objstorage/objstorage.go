package objstorage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jademcosta/logpig/pkg/adapters/objstorage/localstorage"
	"github.com/jademcosta/logpig/pkg/adapters/objstorage/s3"
	"github.com/jademcosta/logpig/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
)

type ObjStorage interface {
	PutObject(ctx context.Context, bucket, key, localPath string) error
	CreateBucket(ctx context.Context, bucket, region string) error
}

type ObjStorageWithMetadata interface {
	ObjStorage
	Type() string
}

type CredentialsResolver interface {
	Resolve(ctx context.Context) error
}

// New builds the configured storage, instrumented, together with the credential chain it signs
// with.
func New(
	ctx context.Context, l *slog.Logger, metricRegistry *prometheus.Registry, conf config.DestinationConfig,
) (ObjStorageWithMetadata, CredentialsResolver, error) {

	switch conf.Type {
	case s3.Type:
		bucket, err := s3.New(ctx, l, conf)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating S3 object storage: %w", err)
		}
		return NewStorageWithMetrics(bucket, metricRegistry), bucket.CredentialsResolver(), nil

	case localstorage.Type:
		storage, err := localstorage.New(l, conf.LocalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating local object storage: %w", err)
		}
		return NewStorageWithMetrics(storage, metricRegistry), storage, nil

	default:
		return nil, nil, fmt.Errorf("invalid object storage type %s", conf.Type)
	}
}
