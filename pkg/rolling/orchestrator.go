package rolling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jademcosta/logpig/pkg/compression"
	"github.com/jademcosta/logpig/pkg/destination"
	"github.com/jademcosta/logpig/pkg/dispatcher"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/jademcosta/logpig/pkg/shutdown"
	"github.com/jademcosta/logpig/pkg/trigger"
)

const (
	ComponentName    = "rolling"
	ShutdownHookName = "rolling_final_upload"
	tempFileSuffix   = ".tmp"
)

var ErrTerminated = errors.New("rolling already terminated by the shutdown flush")

type Trigger interface {
	ElapsedPeriodFileName() string
	CurrentPeriodFileNameWithoutSuffix() string
	CurrentTime() time.Time
}

type ActiveFile interface {
	ActiveFileName() string
}

type ArchiveRemover interface {
	Clean(ctx context.Context, now time.Time) error
}

type CompressionStage interface {
	Mode() domain.CompressionMode
	Compress(ctx context.Context, artifact domain.PendingArtifact) (string, error)
}

type Uploader interface {
	Upload(ctx context.Context, localPath string, settings destination.Settings) domain.UploadOutcome
}

type Dispatcher interface {
	Dispatch(task dispatcher.Task) (*dispatcher.Ticket, error)
	InFlight(key string) (*dispatcher.Ticket, bool)
}

type ShutdownRegistrar interface {
	Register(name string, handle shutdown.Handle) (unregister func())
}

type Collaborators struct {
	Trigger     Trigger
	ActiveFile  ActiveFile
	Remover     ArchiveRemover
	Compression CompressionStage
	Uploader    Uploader
	Dispatcher  Dispatcher
}

// Orchestrator hands every elapsed log file to compression and upload, and flushes the active
// file on shutdown. Tasks are keyed by the local path they will upload.
type Orchestrator struct {
	l                *slog.Logger
	mu               sync.Mutex
	rawFile          string
	maxHistory       int
	trigger          Trigger
	activeFile       ActiveFile
	remover          ArchiveRemover
	compression      CompressionStage
	uploader         Uploader
	dispatcher       Dispatcher
	settings         *destination.Settings
	registered       bool
	terminated       bool
	nanoTimeProvider func() int64
}

// New creates a local-only orchestrator. rawFile is the parent raw file, empty when the active
// file is named after the current period.
func New(l *slog.Logger, rawFile string, maxHistory int, c Collaborators) *Orchestrator {
	return &Orchestrator{
		l:                l.With(logger.ComponentKey, ComponentName),
		rawFile:          rawFile,
		maxHistory:       maxHistory,
		trigger:          c.Trigger,
		activeFile:       c.ActiveFile,
		remover:          c.Remover,
		compression:      c.Compression,
		uploader:         c.Uploader,
		dispatcher:       c.Dispatcher,
		nanoTimeProvider: func() int64 { return time.Now().UnixNano() },
	}
}

// AttachDestination arms uploads. Invalid settings keep the orchestrator local-only and every
// violation is returned.
func (o *Orchestrator) AttachDestination(settings destination.Settings, registrar ShutdownRegistrar) error {
	violations := settings.Validate()
	if len(violations) > 0 {
		for _, violation := range violations {
			o.l.Warn("invalid destination setting, uploads are disabled", "error", violation)
		}
		return errors.Join(violations...)
	}

	o.mu.Lock()
	o.settings = &settings
	alreadyRegistered := o.registered
	o.registered = true
	o.mu.Unlock()

	if !alreadyRegistered {
		registrar.Register(ShutdownHookName, o.RolloverOnShutdown)
	}

	o.l.Info("destination attached", "bucket", settings.BucketName, "folder", settings.FolderName,
		"region", settings.RegionName, "retry_count", settings.RetryCount, "mock_put", settings.MockPut)
	return nil
}

// Rollover detaches the elapsed file and dispatches its processing. It does not wait for it.
func (o *Orchestrator) Rollover(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.terminated {
		return ErrTerminated
	}

	task, err := o.prepareRollover()
	if err != nil {
		return err
	}

	var dispatchErr error
	if task != nil {
		ticket, err := o.dispatcher.Dispatch(*task)
		if err != nil {
			dispatchErr = fmt.Errorf("error dispatching %s: %w", task.Key, err)
			o.l.Error("could not dispatch rolled file, it is kept on disk", logger.FileKey, task.Key, "error", err)
		} else {
			o.l.Debug("rolled file dispatched", logger.FileKey, task.Key, logger.TaskIDKey, ticket.ID)
		}
	}

	o.cleanArchives(ctx)
	return dispatchErr
}

func (o *Orchestrator) prepareRollover() (*dispatcher.Task, error) {
	elapsed := o.trigger.ElapsedPeriodFileName()
	mode := o.compression.Mode()

	if mode == domain.CompressionNone && !o.hasRawFile() {
		return nil, nil
	}

	source := elapsed
	if o.hasRawFile() {
		source = o.rawFile
	}
	if notExists(source) {
		o.l.Debug("nothing was written during the elapsed period", logger.FileKey, source)
		return nil, nil
	}

	target := o.availableName(elapsed, mode)

	if mode == domain.CompressionNone {
		if err := renameFile(o.rawFile, target); err != nil {
			return nil, err
		}
		return o.uploadTask(target), nil
	}

	artifact := domain.PendingArtifact{
		SourcePath:     elapsed,
		TargetPath:     target,
		InnerEntryName: filepath.Base(elapsed),
	}

	if o.hasRawFile() {
		tmpName := o.rawFile + strconv.FormatInt(o.nanoTimeProvider(), 10) + tempFileSuffix
		if err := renameFile(o.rawFile, tmpName); err != nil {
			return nil, err
		}
		artifact.SourcePath = tmpName
	}

	return o.compressAndUploadTask(artifact), nil
}

// RolloverOnShutdown processes the active file synchronously. It runs once; the active file must
// already be closed.
func (o *Orchestrator) RolloverOnShutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.terminated {
		o.mu.Unlock()
		return nil
	}
	o.terminated = true
	settings := o.settings
	o.mu.Unlock()

	mode := o.compression.Mode()
	current := o.trigger.CurrentPeriodFileNameWithoutSuffix()
	active := o.activeFile.ActiveFileName()

	target := active
	if o.hasRawFile() {
		target = current
	}

	uploadPath := compression.FinalName(mode, target)
	if ticket, found := o.dispatcher.InFlight(uploadPath); found {
		o.l.Info("final file already being processed, waiting for it", logger.FileKey, uploadPath,
			logger.TaskIDKey, ticket.ID)
		return ticket.Wait(ctx)
	}

	if notExists(active) {
		o.l.Info("nothing was written since the last rollover, no final upload", logger.FileKey, active)
		return nil
	}

	if mode == domain.CompressionNone {
		if o.hasRawFile() {
			uploadPath = o.availableName(current, mode)
			if err := renameFile(o.rawFile, uploadPath); err != nil {
				return err
			}
		}
	} else {
		finalName, err := o.compression.Compress(ctx, domain.PendingArtifact{
			SourcePath:     active,
			TargetPath:     o.availableName(target, mode),
			InnerEntryName: filepath.Base(current),
		})
		if err != nil {
			return err
		}
		uploadPath = finalName
	}

	if settings == nil {
		return nil
	}

	outcome := o.uploader.Upload(ctx, uploadPath, *settings)
	if !outcome.Succeeded() {
		return outcome.Err
	}
	return nil
}

// availableName returns name, or its first counter variant, whose final file is neither on disk
// nor claimed by an in-flight task. Archives of a period produced by an earlier run are never
// overwritten.
func (o *Orchestrator) availableName(name string, mode domain.CompressionMode) string {
	candidate := name
	for n := 1; ; n++ {
		final := compression.FinalName(mode, candidate)
		_, claimed := o.dispatcher.InFlight(final)
		if !claimed && notExists(final) {
			if candidate != name {
				o.l.Info("archive name already taken, using a numbered one", logger.FileKey, final)
			}
			return candidate
		}
		candidate = trigger.WithCounter(name, n)
	}
}

func (o *Orchestrator) compressAndUploadTask(artifact domain.PendingArtifact) *dispatcher.Task {
	settings := o.settings
	mode := o.compression.Mode()

	return &dispatcher.Task{
		Key:  compression.FinalName(mode, artifact.TargetPath),
		Name: "compress_and_upload",
		Run: func(ctx context.Context) error {
			finalName, err := o.compression.Compress(ctx, artifact)
			if err != nil {
				o.restoreDetached(artifact)
				return err
			}
			return o.upload(ctx, finalName, settings)
		},
	}
}

// restoreDetached gives a temporary file that failed compression its period name back, so the
// data stays next to the other archives instead of under a timestamped name.
func (o *Orchestrator) restoreDetached(artifact domain.PendingArtifact) {
	if !strings.HasSuffix(artifact.SourcePath, tempFileSuffix) || notExists(artifact.SourcePath) ||
		!notExists(artifact.TargetPath) {
		return
	}

	if err := renameFile(artifact.SourcePath, artifact.TargetPath); err != nil {
		o.l.Error("could not restore file after a failed compression", logger.FileKey, artifact.SourcePath,
			"error", err)
		return
	}
	o.l.Warn("compression failed, file kept uncompressed", logger.FileKey, artifact.TargetPath)
}

func (o *Orchestrator) uploadTask(path string) *dispatcher.Task {
	settings := o.settings
	if settings == nil {
		return nil
	}

	return &dispatcher.Task{
		Key:  path,
		Name: "upload",
		Run: func(ctx context.Context) error {
			return o.upload(ctx, path, settings)
		},
	}
}

func (o *Orchestrator) upload(ctx context.Context, path string, settings *destination.Settings) error {
	if settings == nil {
		return nil
	}

	outcome := o.uploader.Upload(ctx, path, *settings)
	if !outcome.Succeeded() {
		return outcome.Err
	}
	return nil
}

func (o *Orchestrator) cleanArchives(ctx context.Context) {
	if o.maxHistory <= 0 || o.remover == nil {
		return
	}

	if err := o.remover.Clean(ctx, o.trigger.CurrentTime()); err != nil {
		o.l.Warn("archive cleanup failed", "error", err)
	}
}

func (o *Orchestrator) hasRawFile() bool {
	return o.rawFile != ""
}
