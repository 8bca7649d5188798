// Package destination holds the remote upload settings and the rules that decide whether they
// are good enough to arm the upload pipeline.
package destination

import (
	"errors"
	"strings"

	"github.com/jademcosta/logpig/pkg/domain"
)

const (
	DefaultRetryCount = 3
	DefaultRegion     = "us-east-1"

	minBucketNameLen = 3
	maxBucketNameLen = 63
)

// Settings are immutable once validated and safe to share between concurrent uploads.
type Settings struct {
	BucketName string
	FolderName string
	RegionName string
	RetryCount int
	MockPut    bool
}

// Validate returns every violation found, not only the first one.
func (s Settings) Validate() []error {
	violations := make([]error, 0)

	bucket := s.BucketName
	if strings.TrimSpace(bucket) == "" {
		violations = append(violations, violation("bucket_name", "cannot be empty"))
	} else {
		violations = append(violations, bucketNameViolations(bucket)...)
	}

	if s.RetryCount < 1 {
		violations = append(violations, violation("retry_count", "must be at least 1"))
	}

	return violations
}

// Err joins all violations into a single error, or nil when the settings are valid.
func (s Settings) Err() error {
	return errors.Join(s.Validate()...)
}

func bucketNameViolations(bucket string) []error {
	violations := make([]error, 0)

	if strings.Contains(bucket, "_") {
		violations = append(violations, violation("bucket_name", "should not contain underscores"))
	}

	if len(bucket) < minBucketNameLen || len(bucket) > maxBucketNameLen {
		violations = append(violations, violation("bucket_name", "should be between 3 and 63 characters long"))
	}

	if strings.HasSuffix(bucket, "-") {
		violations = append(violations, violation("bucket_name", "should not end with a dash"))
	}

	if strings.Contains(bucket, "..") {
		violations = append(violations, violation("bucket_name", "cannot contain adjacent periods"))
	}

	if strings.Contains(bucket, "-.") || strings.Contains(bucket, ".-") {
		violations = append(violations, violation("bucket_name", "cannot contain dashes next to periods"))
	}

	if bucket != strings.ToLower(bucket) {
		violations = append(violations, violation("bucket_name", "cannot contain uppercase characters"))
	}

	return violations
}

func violation(field, reason string) error {
	return &domain.ValidationError{Field: field, Reason: reason}
}
