package httpmiddleware

import "net/http"

type responseWriterWrapper struct {
	wrapped      http.ResponseWriter
	statusCode   int
	responseSize int
}

func newResponseWriterWrapper(w http.ResponseWriter) *responseWriterWrapper {
	return &responseWriterWrapper{wrapped: w, statusCode: http.StatusOK}
}

func (w *responseWriterWrapper) Header() http.Header {
	return w.wrapped.Header()
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	written, err := w.wrapped.Write(data)
	w.responseSize += written
	return written, err
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.wrapped.WriteHeader(statusCode)
}

// Flush keeps streaming handlers (like the profiler) working behind the wrapper.
func (w *responseWriterWrapper) Flush() {
	if flusher, ok := w.wrapped.(http.Flusher); ok {
		flusher.Flush()
	}
}
