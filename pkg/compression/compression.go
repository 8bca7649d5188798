package compression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ComponentName = "compression"

var ErrNothingToCompress = errors.New("compression mode is none, there is nothing to compress")

// Compressor writes the compressed version of source into exactly target.
type Compressor interface {
	Compress(source, target, innerEntryName string) error
}

type Stage struct {
	l          *slog.Logger
	mode       domain.CompressionMode
	compressor Compressor
	tracer     trace.Tracer
}

// NewStage creates a stage with the default compressor for the mode.
func NewStage(
	l *slog.Logger, mode domain.CompressionMode, level string, tracer trace.Tracer,
	metricRegistry *prometheus.Registry,
) (*Stage, error) {

	compressionLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	var compressor Compressor
	switch mode {
	case domain.CompressionGzip:
		compressor = NewGzipCompressor(compressionLevel)
	case domain.CompressionZip:
		compressor = NewZipCompressor(compressionLevel)
	case domain.CompressionNone:
		compressor = nil
	default:
		return nil, fmt.Errorf("unknown compression mode %d", mode)
	}

	return NewStageWithCompressor(l, mode, compressor, tracer, metricRegistry), nil
}

func NewStageWithCompressor(
	l *slog.Logger, mode domain.CompressionMode, compressor Compressor, tracer trace.Tracer,
	metricRegistry *prometheus.Registry,
) *Stage {

	initializeMetrics(metricRegistry)

	return &Stage{
		l:          l.With(logger.ComponentKey, ComponentName),
		mode:       mode,
		compressor: compressor,
		tracer:     tracer,
	}
}

func (s *Stage) Mode() domain.CompressionMode {
	return s.mode
}

// Compress returns the real name of the produced file, which might have gained an extension.
func (s *Stage) Compress(ctx context.Context, artifact domain.PendingArtifact) (string, error) {
	if s.mode == domain.CompressionNone || s.compressor == nil {
		return "", ErrNothingToCompress
	}

	_, span := s.tracer.Start(ctx, "compress", trace.WithAttributes(
		attribute.String("compression.mode", s.mode.String()),
		attribute.String("compression.source", artifact.SourcePath),
	))
	defer span.End()

	finalName := FinalName(s.mode, artifact.TargetPath)
	startTime := time.Now()
	originalSize := fileSize(artifact.SourcePath)

	err := s.compressor.Compress(artifact.SourcePath, finalName, artifact.InnerEntryName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compression failed")
		reportCompressionFailure(s.mode.String())
		s.l.Error("failed to compress file", "source", artifact.SourcePath, "target", finalName, "error", err)
		return "", &domain.CompressionError{Source: artifact.SourcePath, Target: finalName, Err: err}
	}

	reportCompressionDuration(s.mode.String(), time.Since(startTime))
	if originalSize > 0 {
		reportCompressionRatio(s.mode.String(), float64(fileSize(finalName))/float64(originalSize))
	}

	s.l.Debug("compressed file", "source", artifact.SourcePath, "target", finalName)
	return finalName, nil
}

// FinalName appends the extension of the mode unless target already ends with it (any case).
func FinalName(mode domain.CompressionMode, target string) string {
	ext := mode.Extension()
	if ext == "" {
		return target
	}

	if strings.HasSuffix(strings.ToLower(target), ext) {
		return target
	}
	return target + ext
}

func parseLevel(level string) (int, error) {
	if level == "" {
		return defaultLevel, nil
	}

	parsed, err := strconv.Atoi(level)
	if err != nil {
		return 0, fmt.Errorf("invalid compression level %s: %w", level, err)
	}
	return parsed, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
