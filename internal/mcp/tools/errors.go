package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAuth              = "AUTH_ERROR"
	ErrCodeAssemblylineError = "ASSEMBLYLINE_ERROR"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeTimeout           = "TIMEOUT"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapAssemblylineError converts a client.ClientError or other error to a
// coded error.
func WrapAssemblylineError(err error) error {
	if err == nil {
		return nil
	}
	var already *CodedError
	if errors.As(err, &already) {
		return err
	}

	coded := &CodedError{Code: ErrCodeAssemblylineError, Message: err.Error(), Cause: err}

	var ce *client.ClientError
	var netErr net.Error
	switch {
	case errors.As(err, &ce):
		coded.Message = ce.Message
		switch {
		case ce.StatusCode == http.StatusNotFound:
			coded.Code = ErrCodeNotFound
		case ce.StatusCode == http.StatusUnauthorized, ce.StatusCode == http.StatusForbidden:
			coded.Code = ErrCodeAuth
		case ce.Kind == client.KindInvalidArgument, ce.Kind == client.KindStreamOptionInvalid:
			coded.Code = ErrCodeInvalidInput
		}
	case errors.Is(err, context.DeadlineExceeded):
		coded.Code = ErrCodeTimeout
		coded.Message = "request timed out"
	case errors.As(err, &netErr) && netErr.Timeout():
		coded.Code = ErrCodeTimeout
		coded.Message = "request timed out"
	}

	slog.Warn("assemblyline API error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
