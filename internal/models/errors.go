package models

// ErrorResponse is the flat error body every endpoint returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
