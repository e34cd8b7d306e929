package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/sparqlkit/errors"
)

// Operation tracks one protocol operation from dispatch to classification.
// A nil *Metrics skips metric recording.
type Operation struct {
	Kind        string
	Endpoint    string
	Method      string
	Mode        string
	ExecutionID string
	StartTime   time.Time
	Metrics     *Metrics

	span trace.Span
}

// NewOperation creates an operation record. Start it with Start.
func NewOperation(kind, endpoint, method, mode, executionID string, metrics *Metrics) *Operation {
	return &Operation{
		Kind:        kind,
		Endpoint:    endpoint,
		Method:      method,
		Mode:        mode,
		ExecutionID: executionID,
		StartTime:   time.Now(),
		Metrics:     metrics,
	}
}

type operationKey struct{}

// WithOperation stores op in the context.
func WithOperation(ctx context.Context, op *Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the operation stored in ctx, or nil.
func OperationFromContext(ctx context.Context) *Operation {
	if op, ok := ctx.Value(operationKey{}).(*Operation); ok {
		return op
	}
	return nil
}

// Start opens the client span "sparql.<kind>" and counts the operation as
// active. The returned context carries both the span and op.
func (op *Operation) Start(ctx context.Context) context.Context {
	ctx, op.span = StartSpan(ctx, SpanPrefix+op.Kind, trace.WithSpanKind(trace.SpanKindClient))
	op.span.SetAttributes(
		attribute.String(AttrKind, op.Kind),
		attribute.String(AttrEndpoint, op.Endpoint),
		attribute.String(AttrMethod, op.Method),
		attribute.String(AttrExecutionID, op.ExecutionID),
	)
	if op.Mode != "" {
		op.span.SetAttributes(attribute.String(AttrMode, op.Mode))
	}
	if op.Metrics != nil {
		op.Metrics.RecordStart(ctx, op.Kind)
	}
	return WithOperation(ctx, op)
}

// End closes the span and records the outcome. status is the HTTP status,
// or the status carried by err when no response was handed back.
func (op *Operation) End(ctx context.Context, status int, contentType string, err error) {
	duration := time.Since(op.StartTime)
	if status == 0 {
		status = errors.StatusCode(err)
	}

	if op.span != nil {
		if status > 0 {
			op.span.SetAttributes(attribute.Int(AttrStatus, status))
		}
		if contentType != "" {
			op.span.SetAttributes(attribute.String(AttrContentType, contentType))
		}
		op.span.SetAttributes(attribute.Int64(AttrDurationMs, duration.Milliseconds()))
		if err != nil {
			op.span.RecordError(err)
			op.span.SetAttributes(attribute.String(AttrErrorCode, errorCode(err)))
			op.span.SetStatus(codes.Error, err.Error())
		}
		op.span.End()
	}

	if op.Metrics != nil {
		op.Metrics.RecordEnd(ctx, op.Kind, op.Method, status, duration)
		if err != nil {
			op.Metrics.RecordError(ctx, op.Kind, errorCode(err))
		}
	}
}

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}

func errorCode(err error) string {
	if e, ok := errors.AsError(err); ok {
		return string(e.Code)
	}
	return "UNKNOWN"
}
