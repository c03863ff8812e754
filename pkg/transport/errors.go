package transport

import "fmt"

// ErrorClass represents a classification of transport failures.
type ErrorClass string

const (
	// ErrorClassRejected means the remote received the request and refused it
	// (an HTTP error status came back).
	ErrorClassRejected ErrorClass = "rejected"

	// ErrorClassNoResponse means no usable response was received
	// (connection failure, timeout, unreadable body).
	ErrorClassNoResponse ErrorClass = "no_response"

	// ErrorClassRequest means the request could not be constructed locally.
	ErrorClassRequest ErrorClass = "request"
)

// APIError is a transport failure with its classification.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telemetry %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("telemetry %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
