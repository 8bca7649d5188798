package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/jademcosta/logpig/pkg/adapters/notifier"
	"github.com/jademcosta/logpig/pkg/adapters/objstorage"
	"github.com/jademcosta/logpig/pkg/adapters/opsapi"
	"github.com/jademcosta/logpig/pkg/appender"
	"github.com/jademcosta/logpig/pkg/compression"
	"github.com/jademcosta/logpig/pkg/config"
	"github.com/jademcosta/logpig/pkg/dispatcher"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/o11y/tracing"
	"github.com/jademcosta/logpig/pkg/retention"
	"github.com/jademcosta/logpig/pkg/rolling"
	"github.com/jademcosta/logpig/pkg/shutdown"
	"github.com/jademcosta/logpig/pkg/trigger"
	"github.com/jademcosta/logpig/pkg/uploader"
	"github.com/jademcosta/logpig/pkg/worker"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTickInterval    = time.Second
	maxLineSizeInBytes     = 1024 * 1024
	tracerShutdownDeadline = 5 * time.Second
)

type App struct {
	conf                *config.Config
	log                 *slog.Logger
	input               io.Reader
	ctx                 context.Context
	stopFunc            context.CancelFunc
	shutdownDone        chan struct{}
	currentTimeProvider func() time.Time
	tickInterval        time.Duration
}

// pipeline is everything a line goes through after being read.
type pipeline struct {
	appender   *appender.Appender
	dispatcher *dispatcher.Dispatcher
	workers    []*worker.Worker
	flusher    *shutdown.Flusher
}

// New creates the app. Lines are read from input until it ends or the process is signaled.
func New(c *config.Config, l *slog.Logger, input io.Reader) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		conf:                c,
		log:                 l,
		input:               input,
		ctx:                 ctx,
		stopFunc:            cancel,
		shutdownDone:        make(chan struct{}),
		currentTimeProvider: time.Now,
		tickInterval:        defaultTickInterval,
	}
}

// Start blocks until the input ends or a stop is requested, and the shutdown flush is done.
func (a *App) Start() error {
	defer close(a.shutdownDone)

	metricRegistry := prometheus.NewRegistry()
	registerDefaultMetrics(metricRegistry)

	tracer, tracerShutdown, err := a.createTracer()
	if err != nil {
		return err
	}
	defer a.shutdownTracer(tracerShutdown)

	pipe, err := a.createPipeline(metricRegistry, tracer)
	if err != nil {
		return err
	}

	//The shutdown of rungroup seems to be executed from a single goroutine. Meaning that if a
	//waitgroup is added on some interrupt function, it might hang forever.
	var g run.Group

	a.addShutdownRelatedActors(&g)
	inputDone := a.addInputActors(&g, pipe.appender)
	a.addPipelineActors(&g, pipe, inputDone)

	var api *opsapi.API
	if a.conf.API.Enabled() {
		api = opsapi.New(a.log, *a.conf, metricRegistry, tracer, a.conf.Version)
		a.addAPIActor(&g, api)
	}

	err = g.Run()
	if err != nil {
		a.log.Error("something went wrong when running the components", "error", err)
	}
	a.log.Info("logpig stopped")
	return nil
}

// Stop asks the app to shut down and returns a channel closed once it did.
func (a *App) Stop() <-chan struct{} {
	a.log.Debug("app stop called")
	a.stopFunc()
	return a.shutdownDone
}

func (a *App) createPipeline(metricRegistry *prometheus.Registry, tracer trace.Tracer) (*pipeline, error) {
	rollConf := a.conf.Rolling
	mode := domain.CompressionModeFromFileName(rollConf.FileNamePattern)
	pattern := trigger.NewFileNamePattern(rollConf.FileNamePattern, rollConf.DateLayout)
	timeTrigger := trigger.NewTimeBased(pattern, rollConf.Interval, a.currentTimeProvider)

	disp := dispatcher.New(a.log, a.conf.Dispatch.Workers, a.conf.Dispatch.QueueCapacity, metricRegistry)
	workers := make([]*worker.Worker, 0, a.conf.Dispatch.Workers)
	for i := 0; i < a.conf.Dispatch.Workers; i++ {
		workers = append(workers, worker.NewWorker(a.log, disp.WorkersReady, metricRegistry))
	}

	stage, err := compression.NewStage(a.log, mode, a.conf.Compression.Level, tracer, metricRegistry)
	if err != nil {
		return nil, fmt.Errorf("error creating compression stage: %w", err)
	}

	claimed := func(path string) bool {
		_, inFlight := disp.InFlight(path)
		return inFlight
	}
	remover := retention.New(a.log, pattern, rollConf.Interval, rollConf.MaxHistory, claimed)

	activeFile := appender.New(a.log, rollConf.File, timeTrigger, a.currentTimeProvider)
	flusher := shutdown.NewFlusher(a.log)

	collaborators := rolling.Collaborators{
		Trigger:     timeTrigger,
		ActiveFile:  activeFile,
		Remover:     remover,
		Compression: stage,
		Dispatcher:  disp,
	}

	destConf := a.conf.Destination
	if destConf.Declared() {
		upl, err := a.createUploader(metricRegistry, tracer)
		if err != nil {
			return nil, err
		}
		collaborators.Uploader = upl
	}

	orchestrator := rolling.New(a.log, rollConf.File, rollConf.MaxHistory, collaborators)
	activeFile.SetRoller(orchestrator)

	if destConf.Declared() {
		if err := orchestrator.AttachDestination(destConf.Settings(), flusher); err != nil {
			a.log.Warn("destination is invalid, files will only be kept locally", "error", err)
		}
	} else {
		a.log.Info("no destination declared, files will only be kept locally")
	}

	return &pipeline{
		appender:   activeFile,
		dispatcher: disp,
		workers:    workers,
		flusher:    flusher,
	}, nil
}

func (a *App) createUploader(metricRegistry *prometheus.Registry, tracer trace.Tracer) (*uploader.Uploader, error) {
	storage, credentials, err := objstorage.New(a.ctx, a.log, metricRegistry, a.conf.Destination)
	if err != nil {
		return nil, fmt.Errorf("error creating object storage: %w", err)
	}

	notif, err := notifier.New(a.ctx, a.log, metricRegistry, a.conf.Notification)
	if err != nil {
		return nil, fmt.Errorf("error creating notifier: %w", err)
	}

	return uploader.New(a.log, storage, credentials, notif, tracer, metricRegistry, a.currentTimeProvider), nil
}

func (a *App) createTracer() (trace.Tracer, tracing.ShutdownFunc, error) {
	if !a.conf.Tracing.Enabled {
		return tracing.NewNoopTracer(), nil, nil
	}

	tracer, shutdownFunc, err := tracing.NewTracer(a.ctx, a.conf.Tracing)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating tracer: %w", err)
	}
	return tracer, shutdownFunc, nil
}

func (a *App) shutdownTracer(shutdownFunc tracing.ShutdownFunc) {
	if shutdownFunc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownDeadline)
	defer cancel()
	if err := shutdownFunc(ctx); err != nil {
		a.log.Error("tracer shutdown failed", "error", err)
	}
}

func (a *App) addShutdownRelatedActors(g *run.Group) {
	signalsCh := make(chan os.Signal, 2)
	signal.Notify(signalsCh, syscall.SIGINT, syscall.SIGTERM)

	g.Add(func() error {
		select {
		case s := <-signalsCh:
			a.log.Info("received signal, shutting down", "signal", s)
		case <-a.ctx.Done():
		}
		return nil
	}, func(error) {
		a.stopFunc()
		signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	})
}

// addInputActors adds the line reader and the rollover ticker. The returned channel is closed
// once neither of them touches the appender anymore.
func (a *App) addInputActors(g *run.Group, activeFile *appender.Appender) <-chan struct{} {
	inputDone := make(chan struct{})
	var inputWG sync.WaitGroup
	inputWG.Add(2)
	go func() {
		inputWG.Wait()
		close(inputDone)
	}()

	readerCtx, readerCancel := context.WithCancel(context.Background())
	g.Add(
		func() error {
			defer inputWG.Done()
			a.readLines(readerCtx, activeFile)
			return nil
		},
		func(error) {
			readerCancel()
		},
	)

	tickerCtx, tickerCancel := context.WithCancel(context.Background())
	g.Add(
		func() error {
			defer inputWG.Done()
			ticker := time.NewTicker(a.tickInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					activeFile.Tick(tickerCtx)
				case <-tickerCtx.Done():
					return nil
				}
			}
		},
		func(error) {
			tickerCancel()
		},
	)

	return inputDone
}

// readLines returns when the input ends or ctx is done. A read blocked on the input cannot be
// interrupted, so it happens on its own goroutine.
func (a *App) readLines(ctx context.Context, activeFile *appender.Appender) {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		scanner := newLineScanner(a.input)
		for scanner.Scan() {
			line := make([]byte, 0, len(scanner.Bytes())+1)
			line = append(line, scanner.Bytes()...)
			line = append(line, '\n')

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case line := <-lines:
			if _, err := activeFile.Write(line); err != nil {
				a.log.Error("error writing line", "error", err)
			}
		case err := <-readErr:
			if err != nil {
				a.log.Error("error reading input", "error", err)
			}
			a.log.Info("input ended, shutting down")
			return
		case <-ctx.Done():
			return
		}
	}
}

// addPipelineActors keeps the shutdown order: input stops, the active file is closed and
// flushed, the dispatcher hands out what is queued and the workers get a grace period to finish.
func (a *App) addPipelineActors(g *run.Group, pipe *pipeline, inputDone <-chan struct{}) {
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	g.Add(
		func() error {
			pipe.dispatcher.Run(dispatcherCtx)
			return nil
		},
		func(error) {
			<-inputDone
			if err := pipe.appender.Close(); err != nil {
				a.log.Error("error closing active file", "error", err)
			}
			pipe.flusher.Flush(context.Background())
			dispatcherCancel()
		},
	)

	workersCtx, workersCancel := context.WithCancel(context.Background())
	g.Add(
		func() error {
			var wg sync.WaitGroup
			for _, w := range pipe.workers {
				wg.Add(1)
				go func(w *worker.Worker) {
					defer wg.Done()
					w.Run(workersCtx)
				}(w)
			}
			wg.Wait()
			return nil
		},
		func(error) {
			<-pipe.dispatcher.Done()
			a.waitOutstandingTasks(pipe.dispatcher)
			workersCancel()
		},
	)
}

func (a *App) waitOutstandingTasks(disp *dispatcher.Dispatcher) {
	graceCtx, graceCancel := context.WithTimeout(context.Background(), a.conf.Dispatch.ShutdownGracePeriod)
	defer graceCancel()

	err := disp.Wait(graceCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("shutdown grace period is over, some files were not processed and are kept on disk",
			"grace_period", a.conf.Dispatch.ShutdownGracePeriod.String())
	}
}

func (a *App) addAPIActor(g *run.Group, api *opsapi.API) {
	g.Add(
		func() error {
			api.SetReady(true)
			err := api.ListenAndServe()
			if err != nil {
				a.log.Error("api listening and serving failed", "error", err)
			}
			return err
		},
		func(error) {
			api.SetReady(false)
			a.log.Info("shutting down api")
			if err := api.Shutdown(); err != nil {
				a.log.Error("api shutdown failed", "error", err)
			}
		},
	)
}

func registerDefaultMetrics(registry *prometheus.Registry) {
	registry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/.*")}),
		),
	)
}
