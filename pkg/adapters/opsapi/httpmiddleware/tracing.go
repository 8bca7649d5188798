package httpmiddleware

import (
	"net/http"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
)

var SkippedRoutes = []string{"/metrics", "/healthy", "/ready"}

type tracingMiddleware struct {
	tracer     trace.Tracer
	next       http.Handler
	propagator propagation.TextMapPropagator
}

func NewTracingMiddleware(tracer trace.Tracer) func(next http.Handler) http.Handler {
	tMidd := &tracingMiddleware{
		tracer:     tracer,
		propagator: otel.GetTextMapPropagator(),
	}

	return func(next http.Handler) http.Handler {
		tMidd.next = next
		return tMidd
	}
}

func (tMidd *tracingMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writerWrapper := newResponseWriterWrapper(w)

	route := routePattern(r)
	if slices.Contains(SkippedRoutes, route) {
		tMidd.next.ServeHTTP(writerWrapper, r)
		return
	}

	ctx := tMidd.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	attribs := []attribute.KeyValue{
		attribute.String("http.method", r.Method),
		attribute.String("http.target", r.URL.RequestURI()),
		attribute.String("http.host", r.Host),
		attribute.String("http.user_agent", r.UserAgent()),
		attribute.String("http.route", route),
	}
	ctx, span := tMidd.tracer.Start(ctx, r.Method+" "+route, trace.WithAttributes(attribs...))
	defer span.End()

	tMidd.next.ServeHTTP(writerWrapper, r.WithContext(ctx))

	span.SetAttributes(semconv.HTTPResponseStatusCode(writerWrapper.statusCode))
	if writerWrapper.statusCode < 400 {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, http.StatusText(writerWrapper.statusCode))
	}
}
