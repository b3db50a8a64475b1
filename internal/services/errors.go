package services

import "fmt"

// Custom errors

type InvalidInputError struct{ Message string }

func (e *InvalidInputError) Error() string { return e.Message }

// ConfigurationError means the server cannot serve the request until an
// operator changes its environment.
type ConfigurationError struct {
	Message string
	Hint    string
}

func (e *ConfigurationError) Error() string { return e.Message }

type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Unwrap() error { return e.Err }

// ParseError is only ever logged: one bad tool call does not stop the rest.
type ParseError struct {
	ToolCallID string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tool call %s: %v", e.ToolCallID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
