package client

import "fmt"

// TransportError is a network failure or a non-success response from the impact service.
type TransportError struct {
	Op         string // "upload", "status check", "report", "dashboard"
	StatusCode int    // 0 when no response was received
	Message    string
	Details    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Details
}

func networkError(op string, err error) *TransportError {
	return &TransportError{Op: op, Message: err.Error(), Details: err}
}

func statusError(op string, code int, serverMsg string) *TransportError {
	msg := fmt.Sprintf("server responded %d", code)
	if serverMsg != "" {
		msg += ": " + serverMsg
	}
	return &TransportError{Op: op, StatusCode: code, Message: msg}
}
