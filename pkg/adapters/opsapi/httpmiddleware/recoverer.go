package httpmiddleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/jademcosta/logpig/pkg/logger"
)

const recovererComponent = "ops_api_recoverer"

// NewRecoverer turns a panicking handler into a 500 with a JSON body. http.ErrAbortHandler is
// re-raised so the server can abort the response.
func NewRecoverer(l *slog.Logger) func(next http.Handler) http.Handler {
	log := l.With(logger.ComponentKey, recovererComponent)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler { //nolint:errorlint
					panic(rvr)
				}

				log.Error("captured panic on ops API request", "error", rvr, "method", r.Method,
					"path", r.URL.Path, "stack", string(debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
