package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the crawl job ID
	FieldJobID = "job_id"

	// FieldSource is the content source name
	FieldSource = "source"

	// FieldArticleID is the work unit (article) ID
	FieldArticleID = "article_id"

	// FieldWorkerID is the analysis worker loop index
	FieldWorkerID = "worker_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields attached at the log site.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the HTTP response status code
	FieldStatus = "status"

	// FieldSize is the HTTP response body size in bytes
	FieldSize = "size"
)
