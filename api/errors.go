// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for wsproxy.

package api

import (
	"errors"
	"fmt"
)

// Errors reported by buffer adapters and the transport edge.
var (
	// ErrFrameTooLarge: the frame exceeds the adapter capacity outright; no wait was attempted.
	ErrFrameTooLarge = errors.New("frame exceeds adapter capacity")
	// ErrNoSpace: space could not be reclaimed within the wait budget.
	ErrNoSpace = errors.New("no space left in buffer")
	// ErrAllocationFailure: the allocator refused the frame (memory exhausted).
	ErrAllocationFailure = errors.New("buffer allocation failed")
	// ErrTransportReceiveFailed: the transport failed after space was reserved.
	ErrTransportReceiveFailed = errors.New("transport receive failed")

	ErrNotConnected    = errors.New("not connected")
	ErrWouldBlock      = errors.New("no data available")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrServerClosed    = errors.New("server closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeFrameTooLarge
	ErrCodeNoSpace
	ErrCodeAllocation
	ErrCodeTransport
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the sentinel the error was built from.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		cause:   sentinelFor(code),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf classifies err into an ErrorCode.
func CodeOf(err error) ErrorCode {
	var apiErr *Error
	switch {
	case err == nil:
		return ErrCodeOK
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrFrameTooLarge):
		return ErrCodeFrameTooLarge
	case errors.Is(err, ErrAllocationFailure):
		return ErrCodeAllocation
	case errors.Is(err, ErrNoSpace):
		return ErrCodeNoSpace
	case errors.Is(err, ErrTransportReceiveFailed):
		return ErrCodeTransport
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	default:
		return ErrCodeInternal
	}
}

func sentinelFor(code ErrorCode) error {
	switch code {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeFrameTooLarge:
		return ErrFrameTooLarge
	case ErrCodeNoSpace:
		return ErrNoSpace
	case ErrCodeAllocation:
		return ErrAllocationFailure
	case ErrCodeTransport:
		return ErrTransportReceiveFailed
	default:
		return nil
	}
}
