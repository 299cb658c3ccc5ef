package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartDBSpan starts a span for a database operation
func StartDBSpan(ctx context.Context, system, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("DB %s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// DomainMetrics holds OTLP counters for group and import activity.
// A nil *DomainMetrics records nothing.
type DomainMetrics struct {
	groupsCreated  metric.Int64Counter
	locationsAdded metric.Int64Counter
	imports        metric.Int64Counter
	exports        metric.Int64Counter
}

// NewDomainMetrics creates domain metric instruments
func NewDomainMetrics() (*DomainMetrics, error) {
	meter := otel.Meter(instrumentationName)

	groupsCreated, err := meter.Int64Counter(
		"mapgroups.groups.created",
		metric.WithDescription("Total number of location groups created"),
		metric.WithUnit("{groups}"),
	)
	if err != nil {
		return nil, err
	}

	locationsAdded, err := meter.Int64Counter(
		"mapgroups.locations.added",
		metric.WithDescription("Total number of locations persisted"),
		metric.WithUnit("{locations}"),
	)
	if err != nil {
		return nil, err
	}

	imports, err := meter.Int64Counter(
		"mapgroups.imports",
		metric.WithDescription("Total number of bulk imports run"),
		metric.WithUnit("{imports}"),
	)
	if err != nil {
		return nil, err
	}

	exports, err := meter.Int64Counter(
		"mapgroups.exports",
		metric.WithDescription("Total number of group exports"),
		metric.WithUnit("{exports}"),
	)
	if err != nil {
		return nil, err
	}

	return &DomainMetrics{
		groupsCreated:  groupsCreated,
		locationsAdded: locationsAdded,
		imports:        imports,
		exports:        exports,
	}, nil
}

// RecordGroupCreated records a group creation with its initial locations
func (m *DomainMetrics) RecordGroupCreated(ctx context.Context, initialLocations int) {
	if m == nil {
		return
	}
	m.groupsCreated.Add(ctx, 1)
	if initialLocations > 0 {
		m.locationsAdded.Add(ctx, int64(initialLocations), metric.WithAttributes(attribute.String("source", "group")))
	}
}

// RecordLocationAdded records a single persisted location
func (m *DomainMetrics) RecordLocationAdded(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.locationsAdded.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordImport records the outcome of a bulk import
func (m *DomainMetrics) RecordImport(ctx context.Context, succeeded, failed int, cancelled bool) {
	if m == nil {
		return
	}
	m.imports.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("succeeded", succeeded),
		attribute.Int("failed", failed),
		attribute.Bool("cancelled", cancelled),
	))
}

// RecordExport records a group export in the given format
func (m *DomainMetrics) RecordExport(ctx context.Context, format string) {
	if m == nil {
		return
	}
	m.exports.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}
