package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const MsgSchemaVersion string = "0.0.1"

type CompressionMode int

const (
	CompressionNone CompressionMode = iota
	CompressionGzip
	CompressionZip
)

const (
	GzipExtension = ".gz"
	ZipExtension  = ".zip"
)

// CompressionModeFromFileName derives the mode from the extension of a file name pattern.
func CompressionModeFromFileName(name string) CompressionMode {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, GzipExtension):
		return CompressionGzip
	case strings.HasSuffix(lower, ZipExtension):
		return CompressionZip
	default:
		return CompressionNone
	}
}

func (mode CompressionMode) Extension() string {
	switch mode {
	case CompressionGzip:
		return GzipExtension
	case CompressionZip:
		return ZipExtension
	default:
		return ""
	}
}

func (mode CompressionMode) String() string {
	switch mode {
	case CompressionGzip:
		return "gzip"
	case CompressionZip:
		return "zip"
	default:
		return "none"
	}
}

// PendingArtifact is a file waiting to be compressed. InnerEntryName is only used by zip.
type PendingArtifact struct {
	SourcePath     string
	TargetPath     string
	InnerEntryName string
}

type OutcomeStatus int

const (
	OutcomeUploaded OutcomeStatus = iota
	OutcomeMocked
	OutcomeFatal
	OutcomeRetriesExhausted
)

func (status OutcomeStatus) String() string {
	switch status {
	case OutcomeUploaded:
		return "uploaded"
	case OutcomeMocked:
		return "mocked"
	case OutcomeFatal:
		return "fatal"
	case OutcomeRetriesExhausted:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

type UploadOutcome struct {
	LocalPath string
	Bucket    string
	Region    string
	Key       string
	Attempts  int
	Status    OutcomeStatus
	Err       error
}

func (o UploadOutcome) Succeeded() bool {
	return o.Status == OutcomeUploaded || o.Status == OutcomeMocked
}

// RemoteKey builds folder/yyyy/mm/dd/fileName, with the date taken in UTC.
func RemoteKey(folder string, at time.Time, fileName string) string {
	utc := at.UTC()
	datePart := fmt.Sprintf("%04d/%02d/%02d", utc.Year(), int(utc.Month()), utc.Day())
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))

	folder = strings.Trim(folder, "/")
	if folder == "" {
		return datePart + "/" + base
	}
	return folder + "/" + datePart + "/" + base
}
