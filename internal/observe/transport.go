package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// roundTripperFunc adapts a function to [http.RoundTripper].
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Transport returns an [http.RoundTripper] wrapping next (or
// [http.DefaultTransport] when nil) that, for every outgoing request:
//
//  1. Starts a client span as a child of the request context.
//  2. Injects W3C Trace Context headers into a clone of the request.
//  3. Records time-to-response-headers to [Metrics.HTTPClientDuration].
//  4. Marks the span as failed on transport errors and 4xx/5xx statuses.
//  5. Logs completion at debug level with status, duration and trace info.
//
// The request body and credentials are never logged.
func Transport(m *Metrics, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	prop := propagation.TraceContext{}

	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		ctx, span := StartSpan(r.Context(), "HTTP "+r.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.ServerAddress(r.URL.Hostname()),
				semconv.URLPath(r.URL.Path),
			),
		)
		defer span.End()

		// A RoundTripper must not modify the caller's request.
		r = r.Clone(ctx)
		prop.Inject(ctx, propagation.HeaderCarrier(r.Header))

		resp, err := next.RoundTrip(r)
		duration := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		m.HTTPClientDuration.Record(ctx, duration.Seconds(),
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("host", r.URL.Host),
				attribute.Int("status", status),
			),
		)

		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= http.StatusBadRequest:
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))
			span.SetStatus(codes.Error, http.StatusText(status))
		default:
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		}

		Logger(ctx).LogAttrs(ctx, slog.LevelDebug, "provider request completed",
			slog.String("method", r.Method),
			slog.String("host", r.URL.Host),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		)
		return resp, err
	})
}
