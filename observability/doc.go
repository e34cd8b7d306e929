// Package observability provides OpenTelemetry tracing and metrics for
// SPARQL protocol operations.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-service"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-service"))
//	defer mp.Shutdown(ctx)
//	metrics, err := observability.NewMetrics(observability.Meter("sparqlkit"))
//
// Every protocol operation is wrapped in an Operation, which opens a span
// named after the operation kind and records the operation metrics when it
// ends.
package observability
