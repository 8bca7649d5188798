package httpmiddleware

import (
	"log/slog"
	"net/http"
	"time"
)

type loggingMiddleware struct {
	l    *slog.Logger
	next http.Handler
}

func NewLoggingMiddleware(l *slog.Logger) func(next http.Handler) http.Handler {
	logging := &loggingMiddleware{
		l: l,
	}

	return func(next http.Handler) http.Handler {
		logging.next = next
		return logging
	}
}

func (midd *loggingMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeStart := time.Now()
	wrapper := newResponseWriterWrapper(w)

	midd.next.ServeHTTP(wrapper, r)

	midd.l.Debug("HTTP response",
		"method", r.Method,
		"path", r.URL.Path,
		"status", wrapper.statusCode,
		"size_bytes", wrapper.responseSize,
		"from", r.RemoteAddr,
		"latency_time", time.Since(timeStart).String())
}
