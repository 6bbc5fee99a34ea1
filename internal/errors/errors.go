package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode identifies the pipeline stage (or cross-cutting condition) an error belongs to.
type ErrorCode string

const (
	// ErrCodeAuthentication indicates the token exchange failed or returned an unusable body.
	ErrCodeAuthentication ErrorCode = "authentication"
	// ErrCodeJobStart indicates the report job could not be started.
	ErrCodeJobStart ErrorCode = "job_start"
	// ErrCodePollTransport indicates a status request failed at the transport or HTTP level.
	ErrCodePollTransport ErrorCode = "poll_transport"
	// ErrCodePollTimeout indicates the poll budget was exhausted before a result URL appeared.
	ErrCodePollTimeout ErrorCode = "poll_timeout"
	// ErrCodeDownload indicates the encoded report could not be fetched or decoded.
	ErrCodeDownload ErrorCode = "download"
	// ErrCodeWrite indicates the decoded report could not be persisted.
	ErrCodeWrite ErrorCode = "write"
	// ErrCodeValidation indicates invalid input or configuration.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeCanceled indicates the run was canceled by its context.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError is a stage-tagged error with a human-readable message and optional cause.
// It supports errors.Is and errors.As through Unwrap.
type AppError struct {
	// Code categorizes the failure
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError without a cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Authentication creates a new authentication error.
func Authentication(message string) *AppError {
	return New(ErrCodeAuthentication, message)
}

// JobStart creates a new job start error.
func JobStart(message string) *AppError {
	return New(ErrCodeJobStart, message)
}

// PollTransport creates a new poll transport error.
func PollTransport(message string) *AppError {
	return New(ErrCodePollTransport, message)
}

// PollTimeoutf creates a new poll timeout error with a formatted message.
func PollTimeoutf(format string, args ...any) *AppError {
	return Newf(ErrCodePollTimeout, format, args...)
}

// Download creates a new download error.
func Download(message string) *AppError {
	return New(ErrCodeDownload, message)
}

// Validation creates a new validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Validationf creates a new validation error with a formatted message.
func Validationf(format string, args ...any) *AppError {
	return Newf(ErrCodeValidation, format, args...)
}

// Wrap wraps err with the given code and message. It returns nil when err is nil.
// Context cancellation is always reported as ErrCodeCanceled regardless of code.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeCanceled
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps err with the given code and a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsAuthentication checks if an error is an authentication error.
func IsAuthentication(err error) bool {
	return isCode(err, ErrCodeAuthentication)
}

// IsJobStart checks if an error is a job start error.
func IsJobStart(err error) bool {
	return isCode(err, ErrCodeJobStart)
}

// IsPollTransport checks if an error is a poll transport error.
func IsPollTransport(err error) bool {
	return isCode(err, ErrCodePollTransport)
}

// IsPollTimeout checks if an error is a poll timeout error.
func IsPollTimeout(err error) bool {
	return isCode(err, ErrCodePollTimeout)
}

// IsDownload checks if an error is a download error.
func IsDownload(err error) bool {
	return isCode(err, ErrCodeDownload)
}

// IsWrite checks if an error is a write error.
func IsWrite(err error) bool {
	return isCode(err, ErrCodeWrite)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsCanceled checks if an error is a canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// GetCode returns the outermost ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
