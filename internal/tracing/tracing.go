// Package tracing provides OpenTelemetry tracer initialization for the
// session manager core. Real tracing requires an OTLP endpoint to be
// configured; without one, the tracer provider stays a no-op. With an
// endpoint, spans are sampled with NeverSample unless Config.Sample is
// set, in which case AlwaysSample is used (spec's ambient stack, carried
// even though the spec's own Non-goals exclude an external metrics
// backend).
package tracing

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "flame-session-manager"

var (
	initOnce       sync.Once
	tracerProvider trace.TracerProvider = noop.NewTracerProvider()
	sdkProvider    *sdktrace.TracerProvider
)

// Config controls tracer construction. An empty Endpoint leaves tracing
// as a no-op.
type Config struct {
	Endpoint string
	Sample   bool
}

// Init sets up the global tracer provider. Safe to call once at process
// startup; later calls are no-ops.
func Init(cfg Config) {
	initOnce.Do(func() { initTracing(cfg) })
}

func initTracing(cfg Config) {
	if cfg.Endpoint == "" {
		return
	}

	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpointHost(cfg.Endpoint)),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		res = resource.Default()
	}

	sampler := sdktrace.NeverSample()
	if cfg.Sample {
		sampler = sdktrace.AlwaysSample()
	}

	sdkProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	tracerProvider = sdkProvider
	otel.SetTracerProvider(tracerProvider)
}

func endpointHost(endpoint string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(endpoint, prefix) {
			return endpoint[len(prefix):]
		}
	}
	return endpoint
}

// Tracer returns the named tracer. No-op until Init has been called with
// a non-empty endpoint.
func Tracer(name string) trace.Tracer {
	return tracerProvider.Tracer(name)
}

// TraceID returns the hex trace id of the span in ctx, or "" if ctx
// carries no span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Shutdown flushes pending spans and releases the exporter's resources.
func Shutdown(ctx context.Context) error {
	if sdkProvider != nil {
		return sdkProvider.Shutdown(ctx)
	}
	return nil
}
