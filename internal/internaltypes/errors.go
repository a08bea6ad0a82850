package internaltypes

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("already exists")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// ConfigurationError is raised when an adapter is constructed (or first used)
// with missing or invalid settings. It is never retried.
type ConfigurationError struct {
	Adapter string
	Key     string
	Msg     string
}

func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: configuration %q: %s", e.Adapter, e.Key, e.Msg)
	}
	return fmt.Sprintf("%s: configuration: %s", e.Adapter, e.Msg)
}

func MissingConfig(adapter, key string) *ConfigurationError {
	return &ConfigurationError{Adapter: adapter, Key: key, Msg: "is required"}
}

// AdapterError wraps a transport failure or a vendor error payload.
type AdapterError struct {
	Adapter    string
	Op         string
	StatusCode int
	Code       string
	Msg        string
	Err        error
}

func (e *AdapterError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s http %d: %s", e.Adapter, e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Adapter, e.Op, msg)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// BookingError is a vendor-reported booking failure: an expired hold, an
// order that can no longer be cancelled, no capacity.
type BookingError struct {
	Adapter string
	Code    string
	Msg     string
	Err     error
}

func (e *BookingError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s booking [%s]: %s", e.Adapter, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s booking: %s", e.Adapter, e.Msg)
}

func (e *BookingError) Unwrap() error { return e.Err }

// Booking error codes shared across adapters.
const (
	CodeHoldExpired    = "HOLD_EXPIRED"
	CodeNotAvailable   = "NOT_AVAILABLE"
	CodeNotCancellable = "NOT_CANCELLABLE"
	CodeVendor         = "VENDOR_ERROR"
	CodeNotConfigured  = "NOT_CONFIGURED"
)

// ErrorCode extracts a stable code from err for BookingResponse.ErrorCode.
func ErrorCode(err error) string {
	var be *BookingError
	if errors.As(err, &be) && be.Code != "" {
		return be.Code
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return CodeNotConfigured
	}
	var ae *AdapterError
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return CodeVendor
}
