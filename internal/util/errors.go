package util

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotEntitled          = errors.New("not entitled to take this test")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptAlreadyActive = errors.New("an attempt for this test is already in progress")
	ErrStatusUnknown        = errors.New("attempt status unknown")
	ErrSubmissionExhausted  = errors.New("submission failed after all attempts")
	ErrInvalidState         = errors.New("operation not allowed in current session state")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrAnswerKindMismatch   = errors.New("answer kind does not match question kind")
	ErrAnswerOutOfRange     = errors.New("answer option index out of range")
	ErrSessionClosed        = errors.New("session closed")
	ErrCacheMiss            = errors.New("recovery cache miss")
)

// GatewayError describes a failed call to the Assessment Service.
// StatusCode is 0 when the request never produced a response.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("assessment %s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("assessment %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("assessment %s: status %d", e.Op, e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retryable reports whether resending the same request may succeed:
// transport failures, timeouts, throttling and server errors.
func (e *GatewayError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode >= http.StatusInternalServerError:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	}
	return false
}
