package models

import "fmt"

// ErrorDetail is the error shape every transport understands.
type ErrorDetail struct {
	// Code is a JSON-RPC or application error code.
	Code int `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Data holds additional context about the error, like path or operation.
	Data interface{} `json:"data,omitempty"`
}

// Error lets an ErrorDetail travel through error-typed APIs.
func (e *ErrorDetail) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// ErrorResponse wraps an ErrorDetail for HTTP responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
