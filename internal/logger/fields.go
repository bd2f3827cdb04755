package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields carried through the call chain via context.
const (
	FieldRequestID = "request_id"
	FieldImportID  = "import_id"
	FieldRunID     = "run_id"
	FieldJobKind   = "job_kind"
	FieldComponent = "component"
	FieldUserID    = "user_id"
)

// Metric fields attached to single entries for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldRow        = "row"
	FieldStatus     = "status"
	FieldSize       = "size"
)
