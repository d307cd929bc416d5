package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents client error categories
type ErrorCode string

const (
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION"
	ErrCodeValidation     ErrorCode = "VALIDATION"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeTransport      ErrorCode = "TRANSPORT"
	ErrCodeDecode         ErrorCode = "DECODE"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// FallbackMessage is shown when a failure carries no readable message.
const FallbackMessage = "An error occurred"

// AppError represents a normalized client error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrCodeAuthentication, message, http.StatusUnauthorized)
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewTransportError(err error) *AppError {
	return WrapError(err, ErrCodeTransport, FallbackMessage, 0)
}

func NewDecodeError(err error) *AppError {
	return WrapError(err, ErrCodeDecode, "malformed payload", 0)
}

// CodeForStatus maps an HTTP response status onto the client taxonomy.
func CodeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCodeAuthentication
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrCodeValidation
	case http.StatusNotFound:
		return ErrCodeNotFound
	default:
		return ErrCodeInternal
	}
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// DisplayMessage returns the single human-readable message a view shows for err.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	if appErr := GetAppError(err); appErr != nil && appErr.Message != "" {
		return appErr.Message
	}
	return FallbackMessage
}
