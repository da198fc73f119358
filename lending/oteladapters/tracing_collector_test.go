package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/bookhaven/lending-go/lending"
	"github.com/bookhaven/lending-go/lending/oteladapters"
)

func givenTracingCollector(t *testing.T) (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("lending")

	return oteladapters.NewTracingCollector(tracer), exporter
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key string, value string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if string(attr.Key) == key && attr.Value.AsString() == value {
			return
		}
	}

	t.Errorf("span %q is missing attribute %s=%s", span.Name, key, value)
}

func Test_NewTracingCollector_Construction(t *testing.T) {
	collector, _ := givenTracingCollector(t)

	assert.NotNil(t, collector, "NewTracingCollector should return non-nil collector")
}

func Test_TracingCollector_StartSpanCarriesAttributes(t *testing.T) {
	collector, exporter := givenTracingCollector(t)

	attrs := map[string]string{
		"operation":   "checkout_book",
		"borrower_id": "b-1",
	}

	ctx, spanCtx := collector.StartSpan(context.Background(), "lending.checkout_book", attrs)

	assert.NotNil(t, ctx, "Context should not be nil")
	assert.NotNil(t, spanCtx, "SpanContext should not be nil")

	collector.FinishSpan(spanCtx, "success", map[string]string{"result": "ok"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assert.Equal(t, "lending.checkout_book", span.Name, "Span name should match")
	assertSpanHasAttribute(t, span, "operation", "checkout_book")
	assertSpanHasAttribute(t, span, "borrower_id", "b-1")
	assertSpanHasAttribute(t, span, "result", "ok")
	assert.Equal(t, codes.Ok, span.Status.Code, "Span should have OK status")
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	collector, exporter := givenTracingCollector(t)

	testCases := []struct {
		status              string
		expectedCode        codes.Code
		expectedDescription string
	}{
		{"success", codes.Ok, ""},
		{"error", codes.Error, "operation failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			exporter.Reset()

			_, spanCtx := collector.StartSpan(context.Background(), "test", nil)
			collector.FinishSpan(spanCtx, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1, "Expected exactly one span")

			span := spans[0]
			assert.Equal(t, tc.expectedCode, span.Status.Code, "Status code should match")
			assert.Equal(t, tc.expectedDescription, span.Status.Description, "Status description should match")
		})
	}
}

func Test_TracingCollector_ConflictKeepsUnsetStatus(t *testing.T) {
	collector, exporter := givenTracingCollector(t)

	// A rejected checkout is a domain outcome, not a system failure
	_, spanCtx := collector.StartSpan(context.Background(), "lending.checkout_book", nil)
	collector.FinishSpan(spanCtx, "conflict", map[string]string{"error_kind": "conflict"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assert.Equal(t, codes.Unset, span.Status.Code, "Conflict must not mark the span as errored")
	assertSpanHasAttribute(t, span, "status", "conflict")
	assertSpanHasAttribute(t, span, "error_kind", "conflict")
}

func Test_TracingCollector_ContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("lending")
	collector := oteladapters.NewTracingCollector(tracer)

	parentCtx, parentSpan := tracer.Start(context.Background(), "parent-operation")
	defer parentSpan.End()

	childCtx, childSpanCtx := collector.StartSpan(parentCtx, "child-operation", nil)
	collector.FinishSpan(childSpanCtx, "success", nil)

	assert.NotEqual(t, parentCtx, childCtx, "Child context should be different from parent")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span from collector")

	childSpan := spans[0]
	assert.Equal(t, "child-operation", childSpan.Name, "Child span name should match")
	assert.Equal(t, parentSpan.SpanContext().SpanID(), childSpan.Parent.SpanID(), "Child should have correct parent")
}

func Test_TracingCollector_ForeignSpanContextIsIgnored(t *testing.T) {
	collector, exporter := givenTracingCollector(t)

	assert.NotPanics(t, func() {
		collector.FinishSpan(foreignSpanContext{}, "success", map[string]string{"test": "value"})
	}, "FinishSpan should not panic with a foreign SpanContext")

	assert.Len(t, exporter.GetSpans(), 0, "No spans should be recorded for a foreign SpanContext")
}

func Test_OTelSpanContext_SetStatusAndAddAttribute(t *testing.T) {
	collector, exporter := givenTracingCollector(t)

	_, spanCtx := collector.StartSpan(context.Background(), "test", nil)

	spanCtx.AddAttribute("book_id", "b-42")
	spanCtx.SetStatus("success")

	collector.FinishSpan(spanCtx, "success", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assertSpanHasAttribute(t, span, "book_id", "b-42")
	assert.Equal(t, codes.Ok, span.Status.Code, "Span should have OK status")
}

// foreignSpanContext satisfies lending.SpanContext without wrapping an
// OpenTelemetry span.
type foreignSpanContext struct{}

func (foreignSpanContext) SetStatus(_ string)              {}
func (foreignSpanContext) AddAttribute(_ string, _ string) {}

var _ lending.SpanContext = foreignSpanContext{}
