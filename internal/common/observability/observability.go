// Package observability records a span and duration for every pipeline stage
// through OpenTelemetry. Meter data is exported on the Prometheus registry so
// /metrics serves it next to the promauto collectors.
package observability

import (
	"context"
	"fmt"
	"time"

	"pitch-scorer/internal/common/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	stageCounter   otelmetric.Int64Counter
	stageDuration  otelmetric.Float64Histogram
}

// New builds the providers and registers the meter exporter with reg.
// A nil reg uses the default Prometheus registerer.
func New(serviceName string, reg prometheus.Registerer) (*Observability, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(semconv.ServiceName(serviceName))

	meterProvider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetMeterProvider(meterProvider)
	otel.SetTracerProvider(tracerProvider)

	meter := meterProvider.Meter(serviceName)

	stageCounter, err := meter.Int64Counter(
		"pipeline.stages",
		otelmetric.WithDescription("Number of pipeline stages run"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stage counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram(
		"pipeline.stage.duration",
		otelmetric.WithDescription("Pipeline stage duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stage histogram: %w", err)
	}

	return &Observability{
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(serviceName),
		stageCounter:   stageCounter,
		stageDuration:  stageDuration,
	}, nil
}

// NewNoop returns an Observability that only feeds the promauto stage
// histogram. Used by tests and when the exporter cannot be built.
func NewNoop() *Observability {
	return &Observability{tracer: noop.NewTracerProvider().Tracer("noop")}
}

// StageSpan is one running pipeline stage.
type StageSpan struct {
	obs   *Observability
	span  trace.Span
	stage string
	start time.Time
}

// StartStage opens a span named after stage.
func (o *Observability) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, *StageSpan) {
	ctx, span := o.tracer.Start(ctx, "pipeline."+stage, trace.WithAttributes(attrs...))
	return ctx, &StageSpan{obs: o, span: span, stage: stage, start: time.Now()}
}

// End closes the span and records the stage duration with its outcome.
func (s *StageSpan) End(ctx context.Context, err error) time.Duration {
	elapsed := time.Since(s.start)

	status := StatusOK
	if err != nil {
		status = StatusError
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()

	metrics.StageDuration.WithLabelValues(s.stage).Observe(elapsed.Seconds())

	attrs := otelmetric.WithAttributes(
		attribute.String("stage", s.stage),
		attribute.String("status", status),
	)
	if s.obs.stageCounter != nil {
		s.obs.stageCounter.Add(ctx, 1, attrs)
	}
	if s.obs.stageDuration != nil {
		s.obs.stageDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
	return elapsed
}

func (o *Observability) Shutdown(ctx context.Context) error {
	var firstErr error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
