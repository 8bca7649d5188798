package opsapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jademcosta/logpig/pkg/adapters/opsapi/httpmiddleware"
	"github.com/jademcosta/logpig/pkg/config"
	"github.com/jademcosta/logpig/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	ComponentName          = "ops_api"
	defaultShutdownTimeout = 5 * time.Second
)

// API serves the operational routes: metrics, health, readiness, version and profiling.
type API struct {
	mux   *chi.Mux
	log   *slog.Logger
	srv   *http.Server
	port  int
	ready atomic.Bool
}

func New(
	l *slog.Logger, conf config.Config, metricRegistry *prometheus.Registry, tracer trace.Tracer,
	appVersion string,
) *API {

	router := chi.NewRouter()
	logg := l.With(logger.ComponentKey, ComponentName)

	api := &API{
		mux:  router,
		log:  logg,
		srv:  &http.Server{Addr: fmt.Sprintf(":%d", conf.API.Port), Handler: router, ReadHeaderTimeout: 10 * time.Second},
		port: conf.API.Port,
	}

	registerDefaultMiddlewares(api, conf, logg, metricRegistry, tracer)

	RegisterOperationalRoutes(api, appVersion, metricRegistry)
	api.mux.Mount("/debug", middleware.Profiler())

	return api
}

// ListenAndServe blocks until Shutdown is called. A graceful stop is not an error.
func (api *API) ListenAndServe() error {
	api.log.Info(fmt.Sprintf("Starting HTTP server on port %d", api.port))
	err := api.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("when serving HTTP: %w", err)
	}

	return nil
}

func (api *API) Shutdown() error {
	shutdownCtx, shutdownCtxRelease := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer shutdownCtxRelease()

	return api.srv.Shutdown(shutdownCtx)
}

// SetReady controls the /ready answer. It starts as not ready.
func (api *API) SetReady(ready bool) {
	api.ready.Store(ready)
}

func (api *API) Handler() http.Handler {
	return api.mux
}

func registerDefaultMiddlewares(
	api *API,
	conf config.Config,
	l *slog.Logger,
	metricRegistry *prometheus.Registry,
	tracer trace.Tracer,
) {

	//Middlewares on the top wrap the ones in the bottom
	api.mux.Use(httpmiddleware.NewLoggingMiddleware(l))
	if conf.Tracing.Enabled {
		api.mux.Use(httpmiddleware.NewTracingMiddleware(tracer))
	}
	api.mux.Use(httpmiddleware.NewMetricsMiddleware(metricRegistry))
	api.mux.Use(httpmiddleware.NewRecoverer(l))
}
