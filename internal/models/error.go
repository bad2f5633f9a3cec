package models

// ErrorResponse represents an error response of any endpoint
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// example: Insufficient funds
	Error string `json:"error"`
}

// HealthResponse represents the health check response
// swagger:model HealthResponse
type HealthResponse struct {
	// example: OK
	Status string `json:"status"`

	// Server time (RFC 3339)
	Timestamp string `json:"timestamp"`

	// Event publisher circuit breaker state
	// example: closed
	Publisher string `json:"publisher,omitempty"`
}
