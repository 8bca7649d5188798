// Package localstorage is an object store on the local disk, laid out as <path>/<bucket>/<key>.
// It is meant for development and tests.
package localstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
)

const Type string = "localstorage"

type LocalStorage struct {
	path string
	log  *slog.Logger
}

func New(l *slog.Logger, path string) (*LocalStorage, error) {
	path, err := validateAndFormatPath(path)
	if err != nil {
		return nil, fmt.Errorf("error creating localstorage: %w", err)
	}

	return &LocalStorage{path: path, log: l.With(logger.ObjStorageTypeKey, Type)}, nil
}

// PutObject copies the file under the bucket directory. A missing bucket directory is reported
// as domain.ErrBucketMissing.
func (storage *LocalStorage) PutObject(_ context.Context, bucket, key, localPath string) error {
	bucketPath := filepath.Join(storage.path, bucket)
	info, err := os.Stat(bucketPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrBucketMissing, bucket)
		}
		return fmt.Errorf("%w: error getting bucket directory info: %w", domain.ErrTransient, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: bucket path %s is not a directory", domain.ErrTransient, bucketPath)
	}

	fullFilePath := filepath.Join(bucketPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullFilePath), os.ModePerm); err != nil {
		return fmt.Errorf("%w: error creating key directories: %w", domain.ErrTransient, err)
	}

	if err := copyFile(localPath, fullFilePath); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	storage.log.Debug("file stored", logger.FileKey, localPath, "destination", fullFilePath)
	return nil
}

// CreateBucket creates the bucket directory. The region is ignored.
func (storage *LocalStorage) CreateBucket(_ context.Context, bucket, _ string) error {
	if err := os.MkdirAll(filepath.Join(storage.path, bucket), os.ModePerm); err != nil {
		return fmt.Errorf("%w: error creating bucket directory: %w", domain.ErrTransient, err)
	}
	return nil
}

func (storage *LocalStorage) Type() string {
	return Type
}

// Resolve always succeeds: the local disk needs no credentials.
func (storage *LocalStorage) Resolve(_ context.Context) error {
	return nil
}

func copyFile(from, to string) (err error) {
	source, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", from, err)
	}
	defer source.Close()

	target, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", to, err)
	}
	defer func() {
		err = errors.Join(err, target.Close())
	}()

	if _, err := io.Copy(target, source); err != nil {
		return fmt.Errorf("error writing data into file: %w", err)
	}
	return nil
}

func validateAndFormatPath(path string) (string, error) {
	pathInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("the directory for the path doesn't exist: %w", err)
		}
		return "", fmt.Errorf("error on the provided path: %w", err)
	}

	if !pathInfo.IsDir() {
		return "", fmt.Errorf("provided path is not a directory")
	}

	formattedPath := strings.TrimSuffix(path, "/")
	return formattedPath, nil
}
