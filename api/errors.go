// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-tcp.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrServerStopped   = errors.New("server is stopped")
	ErrAlreadyRunning  = errors.New("already running")
	ErrPoolNotRunning  = errors.New("event loop pool is not running")
	ErrLoopStopped     = errors.New("event loop is stopped")
	ErrSessionClosed   = errors.New("session is closed")
	ErrFrameTooLarge   = errors.New("frame exceeds maximum size")
	ErrExecutorClosed  = errors.New("executor is closed")
	ErrExecutorBusy    = errors.New("executor queue is full")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeProtocol
	ErrCodeTimeout
	ErrCodeClosed
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
