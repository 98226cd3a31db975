package utils

import (
	"errors"
	"fmt"

	"github.com/kestrelhq/driveconnect/internal/types"
)

// Error codes (service-owned, stable)
const (
	ErrCodeConnectorNotFound   = "CONNECTOR_NOT_FOUND"
	ErrCodeNodeNotFound        = "NODE_NOT_FOUND"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidPermission   = "INVALID_PERMISSION"
	ErrCodeRegistrationFailed  = "REGISTRATION_FAILED"
	ErrCodeUnresolvedChannel   = "UNRESOLVED_CHANNEL"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeCycleDetected       = "CYCLE_DETECTED"
	ErrCodeAuthExpired         = "AUTH_EXPIRED"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeInvalidArgument     = "INVALID_ARGUMENT"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeUnknown             = "UNKNOWN"
)

// ServiceErrorBuilder helps construct ServiceError instances
type ServiceErrorBuilder struct {
	err types.ServiceError
}

// NewServiceError creates a new error builder
func NewServiceError(code, message string) *ServiceErrorBuilder {
	return &ServiceErrorBuilder{
		err: types.ServiceError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *ServiceErrorBuilder) WithHTTPStatus(status int) *ServiceErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *ServiceErrorBuilder) WithRetryable(retryable bool) *ServiceErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *ServiceErrorBuilder) WithContext(key string, value interface{}) *ServiceErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *ServiceErrorBuilder) Build() types.ServiceError {
	return b.err
}

// AppError is the error type that carries a ServiceError through call chains
type AppError struct {
	ServiceError types.ServiceError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.ServiceError.Code, e.ServiceError.Message)
}

// NewAppError creates an AppError from a ServiceError
func NewAppError(svcErr types.ServiceError) *AppError {
	return &AppError{ServiceError: svcErr}
}

// CodeOf extracts the service error code from an error, or ErrCodeUnknown
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ServiceError.Code
	}
	return ErrCodeUnknown
}

// IsCode reports whether err carries the given service error code
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether err is marked retryable by the upstream
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ServiceError.Retryable
	}
	return false
}
