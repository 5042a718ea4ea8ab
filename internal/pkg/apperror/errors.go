package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so sentinel errors compare with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// InvalidState reports an action attempted outside the allowed status.
func InvalidState(entity, from, action string) *AppError {
	return Newf(ErrCodeInvalidState, "%s in status %q cannot %s", entity, from, action)
}

func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func Upstream(err error, message string) *AppError {
	return Wrap(err, ErrCodeUpstreamFailure, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidState:
		return http.StatusConflict
	case ErrCodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the code of the first AppError in the chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

func IsInvalidState(err error) bool {
	return CodeOf(err) == ErrCodeInvalidState
}

func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

func IsUpstream(err error) bool {
	return CodeOf(err) == ErrCodeUpstreamFailure
}

var (
	ErrTaskNotFound         = New(ErrCodeNotFound, "task not found")
	ErrApplicationNotFound  = New(ErrCodeNotFound, "application not found")
	ErrEscrowNotFound       = New(ErrCodeNotFound, "escrow not found")
	ErrMilestoneNotFound    = New(ErrCodeNotFound, "milestone not found")
	ErrDisputeNotFound      = New(ErrCodeNotFound, "dispute not found")
	ErrVerificationNotFound = New(ErrCodeNotFound, "verification request not found")
	ErrConversationNotFound = New(ErrCodeNotFound, "conversation not found")
	ErrUserNotFound         = New(ErrCodeNotFound, "user not found")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "authorization required")
	ErrForbidden            = New(ErrCodeForbidden, "insufficient permissions")
	ErrInvalidCredentials   = New(ErrCodeUnauthorized, "invalid credentials")
	ErrInvalidToken         = New(ErrCodeUnauthorized, "invalid or expired token")
	ErrEmailTaken           = New(ErrCodeConflict, "email is already registered")
	ErrStaleVersion         = New(ErrCodeConflict, "record was modified concurrently, retry the request")
)
