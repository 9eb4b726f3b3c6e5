package internal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "canair"

// Telemetry bundles the logger, tracer and meter of a stage.
type Telemetry struct {
	stageKind string
	stageName string

	l *Logger

	tracer trace.Tracer
	meter  metric.Meter
}

func NewTelemetry(stageKind, stageName string) *Telemetry {
	return &Telemetry{
		stageKind: stageKind,
		stageName: stageName,

		l: NewLogger(stageKind, stageName),

		tracer: otel.GetTracerProvider().Tracer(scopeName),
		meter:  otel.GetMeterProvider().Meter(scopeName),
	}
}

func (t *Telemetry) Logger() *Logger {
	return t.l
}

func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.l.Info(msg, args...)
}

func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.l.Warn(msg, args...)
}

func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.l.Error(msg, err, args...)
}

func (t *Telemetry) setDefaultAttributes(span trace.Span) {
	span.SetAttributes(
		attribute.String("canair.stage_kind", t.stageKind),
		attribute.String("canair.stage_name", t.stageName),
	)
}

// NewTrace starts a new span with the stage attributes already set.
func (t *Telemetry) NewTrace(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, spanName, opts...)
	t.setDefaultAttributes(span)
	return ctx, span
}

func (t *Telemetry) getMeterName(name string) string {
	return fmt.Sprintf("%s_%s_%s", t.stageKind, t.stageName, name)
}

// NewCounter registers an observable counter backed by the given callback.
func (t *Telemetry) NewCounter(name string, observe func() int64) {
	counterName := t.getMeterName(name)

	_, err := t.meter.Int64ObservableCounter(counterName,
		metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(observe())
			return nil
		}),
	)
	if err != nil {
		t.LogError("failed to create counter", err, "name", counterName)
		return
	}

	t.LogInfo("created counter", "name", counterName)
}

// Histogram wraps an [metric.Int64Histogram].
// A histogram that failed to register records nothing.
type Histogram struct {
	hist metric.Int64Histogram
}

func (h *Histogram) Record(ctx context.Context, value int64) {
	if h.hist != nil {
		h.hist.Record(ctx, value)
	}
}

func (t *Telemetry) NewHistogram(name string, opts ...metric.Int64HistogramOption) *Histogram {
	histName := t.getMeterName(name)

	hist, err := t.meter.Int64Histogram(histName, opts...)
	if err != nil {
		t.LogError("failed to create histogram", err, "name", histName)
		return &Histogram{}
	}

	return &Histogram{hist: hist}
}
