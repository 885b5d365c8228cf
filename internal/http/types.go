package http

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse carries a logical failure. ID echoes the addressed issue
// when one was supplied.
type ErrorResponse struct {
	Error string `json:"error"`
	ID    string `json:"_id,omitempty"`
}

// Error messages produced by the adapter itself.
const (
	msgInvalidBody = "invalid request body"
	msgInternal    = "internal error"
)

// nestedFieldsKey wraps update fields in some clients' request bodies.
const nestedFieldsKey = "fieldsToUpdate"
