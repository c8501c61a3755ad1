// Package errors defines the structured error taxonomy of the tokengate service.
// Every AppError carries a stable machine code, a client-facing message and the
// HTTP status the web layer maps it to.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ================================================================================
// Error Codes
// ================================================================================

const (
	ErrCodeInternal           = "internal_error"
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeUnauthenticated    = "unauthenticated"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodeConflict           = "conflict"
	ErrCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrCodeServiceUnavailable = "service_unavailable"

	ErrCodeKeyLoad        = "key_load_error"
	ErrCodeInvalidToken   = "invalid_token"
	ErrCodeTokenExpired   = "token_expired"
	ErrCodeWrongTokenType = "wrong_token_type"

	ErrCodeBadCredentials   = "bad_credentials"
	ErrCodeUserDisabled     = "user_disabled"
	ErrCodeUserLocked       = "user_locked"
	ErrCodeUserNotFound     = "user_not_found"
	ErrCodeEmailExists      = "email_already_exists"
	ErrCodePhoneExists      = "phone_already_exists"
	ErrCodePasswordMismatch = "password_mismatch"
	ErrCodeRoleNotFound     = "role_not_found"

	ErrCodeChangePasswordMismatch    = "change_password_mismatch"
	ErrCodeInvalidCurrentPassword    = "invalid_current_password"
	ErrCodeAccountAlreadyDeactivated = "account_already_deactivated"
	ErrCodeAccountAlreadyActive      = "account_already_active"

	ErrCodeDatabase      = "database_error"
	ErrCodeCache         = "cache_error"
	ErrCodeInvalidConfig = "invalid_config"
)

// ================================================================================
// AppError
// ================================================================================

// AppError represents a structured application error.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]string
	cause      error
}

// NewError creates a new AppError.
func NewError(code string, httpStatus int, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is reports whether target is an AppError with the same code, so that a
// copy produced by WithError or WithDetail still matches its sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithError returns a copy of the error wrapping cause.
func (e *AppError) WithError(cause error) *AppError {
	c := e.clone()
	c.cause = cause
	return c
}

// WithMessage returns a copy of the error with a more specific message.
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	c := e.clone()
	c.Message = fmt.Sprintf(format, args...)
	return c
}

// WithDetail returns a copy of the error with an additional detail entry.
func (e *AppError) WithDetail(key, value string) *AppError {
	c := e.clone()
	c.Details[key] = value
	return c
}

func (e *AppError) clone() *AppError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		Details:    details,
		cause:      e.cause,
	}
}

// ================================================================================
// Predefined Errors
// ================================================================================

var (
	ErrInternalServer     = NewError(ErrCodeInternal, http.StatusInternalServerError, "An internal error occurred, please try again or contact the administrator")
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, http.StatusBadRequest, "Invalid request")
	ErrUnauthenticated    = NewError(ErrCodeUnauthenticated, http.StatusUnauthorized, "Authentication is required to access this resource")
	ErrForbidden          = NewError(ErrCodeForbidden, http.StatusForbidden, "You are not authorized to perform this operation")
	ErrNotFound           = NewError(ErrCodeNotFound, http.StatusNotFound, "Resource not found")
	ErrRateLimitExceeded  = NewError(ErrCodeRateLimitExceeded, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable")
	ErrInvalidConfig      = NewError(ErrCodeInvalidConfig, http.StatusInternalServerError, "Invalid configuration")

	// ErrKeyLoad signals missing or corrupt key material. It is fatal at boot.
	ErrKeyLoad = NewError(ErrCodeKeyLoad, http.StatusInternalServerError, "Failed to load key material")
	// ErrInvalidToken signals a malformed token or a failed signature check.
	ErrInvalidToken = NewError(ErrCodeInvalidToken, http.StatusUnauthorized, "Token is invalid")
	// ErrTokenExpired signals a correctly signed token past its expiry.
	ErrTokenExpired = NewError(ErrCodeTokenExpired, http.StatusUnauthorized, "Token has expired")
	// ErrWrongTokenType signals a token presented for the wrong purpose.
	ErrWrongTokenType = NewError(ErrCodeWrongTokenType, http.StatusUnauthorized, "Invalid token type")

	ErrBadCredentials     = NewError(ErrCodeBadCredentials, http.StatusUnauthorized, "Username and / or password is incorrect")
	ErrUserDisabled       = NewError(ErrCodeUserDisabled, http.StatusUnauthorized, "User account is disabled, please activate your account or contact the administrator")
	ErrUserLocked         = NewError(ErrCodeUserLocked, http.StatusUnauthorized, "User account is locked")
	ErrUserNotFound       = NewError(ErrCodeUserNotFound, http.StatusNotFound, "User not found")
	ErrEmailAlreadyExists = NewError(ErrCodeEmailExists, http.StatusConflict, "Email already exists")
	ErrPhoneAlreadyExists = NewError(ErrCodePhoneExists, http.StatusConflict, "An account with this phone number already exists")
	ErrPasswordMismatch   = NewError(ErrCodePasswordMismatch, http.StatusBadRequest, "The password and confirmation do not match")
	ErrRoleNotFound       = NewError(ErrCodeRoleNotFound, http.StatusInternalServerError, "Role does not exist")

	ErrChangePasswordMismatch    = NewError(ErrCodeChangePasswordMismatch, http.StatusBadRequest, "New password and confirmation do not match")
	ErrInvalidCurrentPassword    = NewError(ErrCodeInvalidCurrentPassword, http.StatusBadRequest, "The current password is incorrect")
	ErrAccountAlreadyDeactivated = NewError(ErrCodeAccountAlreadyDeactivated, http.StatusBadRequest, "Account has been deactivated")
	ErrAccountAlreadyActive      = NewError(ErrCodeAccountAlreadyActive, http.StatusBadRequest, "Account is already active")

	ErrDatabase = NewError(ErrCodeDatabase, http.StatusInternalServerError, "Database operation failed")
	ErrCache    = NewError(ErrCodeCache, http.StatusInternalServerError, "Cache operation failed")
)

// ================================================================================
// Helpers
// ================================================================================

// Is is a re-export of the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a re-export of the standard library errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// New creates a plain error, mirroring the standard library.
func New(text string) error {
	return stderrors.New(text)
}

// AsAppError extracts the AppError from err's chain. Errors that are not
// AppErrors are reported as ErrInternalServer wrapping the original error.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithError(err)
}

// HTTPStatus returns the HTTP status associated with err.
func HTTPStatus(err error) int {
	appErr := AsAppError(err)
	if appErr == nil {
		return http.StatusOK
	}
	if appErr.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return appErr.HTTPStatus
}
