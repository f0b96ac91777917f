package entities

import (
	"fmt"
	"time"
)

// ValidationError is a malformed inbound request. Surfaced as HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnsupportedCategoryError is a chat request for an unknown category. Surfaced as HTTP 400.
type UnsupportedCategoryError struct {
	Category string
}

func (e *UnsupportedCategoryError) Error() string {
	return fmt.Sprintf("Unsupported category: %s. Please select a valid category.", e.Category)
}

// TimeoutError means the outbound call exceeded its budget and was cancelled.
type TimeoutError struct {
	Endpoint string
	Budget   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("webhook %s did not answer within %s", e.Endpoint, e.Budget)
}

// NetworkError means the outbound call failed before a response arrived.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("calling webhook %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamStatusError is a non-2xx webhook answer.
type UpstreamStatusError struct {
	StatusCode int
	Detail     string
	Reason     FallbackReason
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Detail)
}

// InterpretationError means the body matched no known shape or carried no content.
type InterpretationError struct {
	Detail string
}

func (e *InterpretationError) Error() string {
	return "uninterpretable webhook response: " + e.Detail
}
