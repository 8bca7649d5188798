package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBucketMissing  = errors.New("bucket does not exist")
	ErrAuthentication = errors.New("authentication failed")
	ErrTransient      = errors.New("transient remote error")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type CompressionError struct {
	Source string
	Target string
	Err    error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compressing %s into %s: %v", e.Source, e.Target, e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError means the file is still local: every attempt failed with a retryable error.
type RetryExhaustedError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("upload of %s gave up after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}
