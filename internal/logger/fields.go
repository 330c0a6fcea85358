package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through context.
const (
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldComponent = "component"
)

// Gallery fields.
const (
	// FieldCursor is the pagination cursor a fetch was issued for
	FieldCursor = "cursor"

	// FieldGeneration is the page cache generation a fetch belongs to
	FieldGeneration = "generation"

	FieldImageID = "image_id"
	FieldURL     = "url"
)

// Metric fields, used with the Entry API.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
