package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	CodeNotFound         = "NOT_FOUND"
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeInternal         = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
	// RetryAfter is set on TOO_MANY_REQUESTS errors.
	RetryAfter time.Duration
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Validation rejects input before any store call is made.
func Validation(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// Unauthorized is returned when an operation needs a principal and none was supplied.
func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// StoreUnavailable marks a transient store failure the caller may retry.
func StoreUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    CodeStoreUnavailable,
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func TooManyRequests(message string, retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       CodeTooManyRequests,
		Message:    message,
		Status:     http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable reports whether err is a transient store failure.
func IsRetryable(err error) bool {
	return Is(err, CodeStoreUnavailable)
}

// AsAppError unwraps err to an *AppError when there is one in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
