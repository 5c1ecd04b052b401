// Package errors defines the sync engine's error taxonomy. Every failure a
// fetch can produce is tagged with a Kind so callers can distinguish
// "empty by design" from "failed, show stale data" without string matching.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind categorizes a sync error
type Kind string

const (
	// KindTransport represents a non-2xx application error from the remote service
	KindTransport Kind = "transport"
	// KindTimeout represents an abort-triggered request timeout; retriable
	KindTimeout Kind = "timeout"
	// KindNetwork represents a connectivity failure; retriable after re-checking auth
	KindNetwork Kind = "network"
	// KindParse represents a malformed response or persisted blob; treated as no data
	KindParse Kind = "parse"
	// KindAuth represents a missing or expired session
	KindAuth Kind = "auth"
)

// SyncError is the single error type the transport and coordinator surface
type SyncError struct {
	Kind    Kind
	Status  int    // HTTP status for transport errors, 0 otherwise
	Message string
	Body    string // response body for transport errors
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// NewTransportError creates an error for a non-2xx application response
func NewTransportError(status int, body string) *SyncError {
	return &SyncError{
		Kind:    KindTransport,
		Status:  status,
		Message: http.StatusText(status),
		Body:    body,
	}
}

// NewTimeoutError creates an error for an aborted request
func NewTimeoutError(cause error) *SyncError {
	return &SyncError{Kind: KindTimeout, Message: "request timed out", Cause: cause}
}

// NewNetworkError creates an error for a connectivity failure
func NewNetworkError(cause error) *SyncError {
	return &SyncError{Kind: KindNetwork, Message: "network failure", Cause: cause}
}

// NewParseError creates an error for a malformed payload
func NewParseError(what string, cause error) *SyncError {
	return &SyncError{Kind: KindParse, Message: "malformed " + what, Cause: cause}
}

// NewAuthError creates an error for a missing or expired session
func NewAuthError(message string) *SyncError {
	return &SyncError{Kind: KindAuth, Message: message}
}

// Classify wraps a raw error from the HTTP client into a SyncError.
// Context deadline exhaustion and net timeouts become KindTimeout; everything
// else from the wire is KindNetwork.
func Classify(err error) *SyncError {
	var se *SyncError
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}
	return NewNetworkError(err)
}

// KindOf returns the Kind of err, or "" when err is not a SyncError.
func KindOf(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsRetryable reports whether the coordinator should retry after err.
// Transport application errors are terminal; timeouts and connectivity
// failures are worth another attempt.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindNetwork:
		return true
	case KindTransport:
		var se *SyncError
		errors.As(err, &se)
		return se.Status >= 500
	default:
		return false
	}
}
