// Package errors provides the error taxonomy for outbound probes and the
// chat and diagnostic controllers.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrBusy         = errors.New("another request is already in progress")
	ErrEmptyMessage = errors.New("message cannot be empty")
	ErrInvalidURL   = errors.New("only http and https URLs are supported")
	ErrCrossSite    = errors.New("request may be blocked by cross-site request forgery protection")
	ErrCORSMissing  = errors.New("response has no access-control-allow-origin header")
)

// Kind classifies a probe failure.
type Kind int

const (
	KindNone Kind = iota
	KindTimeout
	KindNetwork
	KindHTTP
	KindDecode
	KindCrossSite
	KindCORSMissing
	KindUnknown
)

// String returns a short name for the kind
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network-unreachable"
	case KindHTTP:
		return "http-error"
	case KindDecode:
		return "decode-error"
	case KindCrossSite:
		return "cross-site-protection-suspected"
	case KindCORSMissing:
		return "cors-missing"
	default:
		return "unknown"
	}
}

// TimeoutError is returned when no response arrived before the deadline.
type TimeoutError struct {
	URL     string
	Timeout string
}

func (e *TimeoutError) Error() string {
	if e.Timeout == "" {
		return fmt.Sprintf("request to %s timed out", e.URL)
	}
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.Timeout)
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(url, timeout string) *TimeoutError {
	return &TimeoutError{URL: url, Timeout: timeout}
}

// NetworkError represents a failure to obtain any response at all.
type NetworkError struct {
	Operation string
	URL       string
	Cause     error
}

func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("network error during %s at %s", e.Operation, e.URL)
	}
	return fmt.Sprintf("network error during %s at %s: %v", e.Operation, e.URL, e.Cause)
}

// Unwrap returns the underlying cause
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation, url string, cause error) *NetworkError {
	return &NetworkError{Operation: operation, URL: url, Cause: cause}
}

// HTTPError represents a non-2xx response. Body holds the raw response text.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Is matches ErrCrossSite for 403 responses
func (e *HTTPError) Is(target error) bool {
	if target == ErrCrossSite {
		return e.StatusCode == 403
	}
	_, ok := target.(*HTTPError)
	return ok
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, url, body string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, URL: url, Body: body}
}

// DecodeError represents a 2xx response whose body is not valid JSON.
type DecodeError struct {
	StatusCode int
	URL        string
	Body       string
	Cause      error
}

func (e *DecodeError) Error() string {
	msg := "invalid JSON in response"
	if e.URL != "" {
		msg += " from " + e.URL
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// NewDecodeError creates a new DecodeError
func NewDecodeError(statusCode int, url, body string, cause error) *DecodeError {
	return &DecodeError{StatusCode: statusCode, URL: url, Body: body, Cause: cause}
}

// IsTimeoutError reports whether err is or wraps a TimeoutError
func IsTimeoutError(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}

// IsNetworkError reports whether err is or wraps a NetworkError
func IsNetworkError(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

// IsHTTPError reports whether err is or wraps an HTTPError
func IsHTTPError(err error) bool {
	var e *HTTPError
	return errors.As(err, &e)
}

// IsDecodeError reports whether err is or wraps a DecodeError
func IsDecodeError(err error) bool {
	var e *DecodeError
	return errors.As(err, &e)
}

// GetHTTPStatus extracts the status code carried by err, or 0.
func GetHTTPStatus(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.StatusCode
	}
	return 0
}

// GetResponseBody extracts the raw body carried by err, or "".
func GetResponseBody(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Body
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Body
	}
	return ""
}

// Classify maps err onto the taxonomy. Order matters: a DecodeError wrapping
// a timeout during the body read is still a timeout.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case IsTimeoutError(err):
		return KindTimeout
	case IsNetworkError(err):
		return KindNetwork
	case errors.Is(err, ErrCrossSite):
		return KindCrossSite
	case IsHTTPError(err):
		return KindHTTP
	case IsDecodeError(err):
		return KindDecode
	case errors.Is(err, ErrCORSMissing):
		return KindCORSMissing
	default:
		return KindUnknown
	}
}
