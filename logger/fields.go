package logger

import "time"

// Standard field keys used across the protocol client.
const (
	FieldComponent   = "component"
	FieldService     = "service"
	FieldEndpoint    = "endpoint"
	FieldMethod      = "method"
	FieldKind        = "kind"
	FieldMode        = "mode"
	FieldStatus      = "status"
	FieldExecutionID = "execution_id"
	FieldContentType = "content_type"
	FieldEncoding    = "encoding"
	FieldOverride    = "override"
	FieldDrained     = "drained_bytes"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
)

// Fields builds a map from alternating key-value pairs.
//
//	log.Debug("dispatch", logger.Fields(logger.FieldMethod, "GET", logger.FieldEndpoint, url))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for a failed operation against an endpoint.
func ErrorFields(endpoint string, err error) map[string]any {
	return map[string]any{
		FieldEndpoint: endpoint,
		FieldError:    err.Error(),
	}
}

// MergeWithDuration adds a duration field to an existing map.
func MergeWithDuration(fields map[string]any, d time.Duration) map[string]any {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
