// Package observability instruments the gateway's own dispatch loop with
// OpenTelemetry spans and counters, exported through the stdout exporters
// so an operator gets self-observability without running a collector. This
// is the gateway watching itself; the post-write observability hook, which
// inspects the *agent's* code for logging/metric markers, is unrelated.
//
// Export targets stderr, never stdout: stdout is reserved for the
// single-line annotation JSON the host parses.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

// Dispatcher matches the hook kernel's dispatch signature; declared here so
// the telemetry wrapper does not depend on the inbound adapter.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *intercept.Payload) (*hook.Result, error)
}

// Telemetry owns the tracer/meter providers for one gatekeeper invocation.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	tracer          trace.Tracer
	dispatchCounter metric.Int64Counter
	dispatchLatency metric.Float64Histogram
}

// New sets up stdout-exporting providers. Every gatekeeper process is
// short-lived, so the metric reader flushes on Shutdown rather than on an
// interval.
func New(ctx context.Context) (*Telemetry, error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithEncoder(json.NewEncoder(os.Stderr)))
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	t := &Telemetry{
		tracerProvider: sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter)),
		meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(time.Hour)))),
	}

	t.tracer = t.tracerProvider.Tracer("gatekeeper/dispatch")
	meter := t.meterProvider.Meter("gatekeeper/dispatch")

	t.dispatchCounter, err = meter.Int64Counter("gatekeeper.dispatch.decisions",
		metric.WithDescription("Hook dispatch outcomes by interception point and status"))
	if err != nil {
		return nil, fmt.Errorf("create decision counter: %w", err)
	}
	t.dispatchLatency, err = meter.Float64Histogram("gatekeeper.dispatch.duration_ms",
		metric.WithDescription("Hook dispatch wall time in milliseconds"))
	if err != nil {
		return nil, fmt.Errorf("create latency histogram: %w", err)
	}

	return t, nil
}

// Shutdown flushes and stops both providers. Must run before process exit
// or the final spans and counters are lost.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Instrument wraps a dispatcher so every Dispatch emits one span plus a
// decision counter and latency sample.
func (t *Telemetry) Instrument(next Dispatcher) Dispatcher {
	return instrumented{next: next, telemetry: t}
}

type instrumented struct {
	next      Dispatcher
	telemetry *Telemetry
}

func (i instrumented) Dispatch(ctx context.Context, payload *intercept.Payload) (*hook.Result, error) {
	ctx, span := i.telemetry.tracer.Start(ctx, "dispatch "+string(payload.Point))
	defer span.End()

	start := time.Now()
	result, err := i.next.Dispatch(ctx, payload)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	attrs := []attribute.KeyValue{
		attribute.String("gatekeeper.point", string(payload.Point)),
	}
	if err != nil {
		span.RecordError(err)
		attrs = append(attrs, attribute.String("gatekeeper.status", "error"))
	} else {
		attrs = append(attrs,
			attribute.String("gatekeeper.status", string(result.Decision.Status)),
			attribute.String("gatekeeper.blocking_hook", result.Decision.HookName),
		)
		span.SetAttributes(attribute.String("gatekeeper.request_id", result.RequestID))
	}
	span.SetAttributes(attrs...)

	i.telemetry.dispatchCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	i.telemetry.dispatchLatency.Record(ctx, elapsed, metric.WithAttributes(
		attribute.String("gatekeeper.point", string(payload.Point))))

	return result, err
}
