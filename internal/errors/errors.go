// Package errors defines the categorized error taxonomy shared by the service,
// adapter and API layers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryNotFound represents a referenced user, room or record that does not exist
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryValidation represents missing or malformed parameters
	CategoryValidation ErrorCategory = "validation"
	// CategoryProvider represents third-party API failures
	CategoryProvider ErrorCategory = "provider"
	// CategoryConfiguration represents unset credentials or settings
	CategoryConfiguration ErrorCategory = "configuration"
	// CategorySystem represents unexpected internal failures (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryConflict represents a request that contradicts current state
	CategoryConflict ErrorCategory = "conflict"
	// CategoryAuthorization represents authentication and permission failures
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryRateLimit represents throttled requests
	CategoryRateLimit ErrorCategory = "rate_limit"
)

// Error codes
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeProvider            = "PROVIDER_ERROR"
	CodeCredentialsMissing  = "CREDENTIALS_MISSING"
	CodeSynthesisCanceled   = "SYNTHESIS_CANCELED"
	CodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	CodeInternal            = "INTERNAL_ERROR"
	CodeConflict            = "CONFLICT"
	CodeInsufficientTokens  = "INSUFFICIENT_TOKENS"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeRateLimit           = "RATE_LIMIT_EXCEEDED"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// PublicMessage returns the message that may be shown to a client.
// System errors never expose their message or cause.
func (e *CategorizedError) PublicMessage() string {
	if e.StatusCode >= http.StatusInternalServerError && e.Category != CategoryConfiguration {
		return "An internal error occurred"
	}
	return e.Message
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewValidationError creates a validation error for a missing or invalid parameter
func NewValidationError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
	}
}

// NewProviderError creates a third-party provider error
func NewProviderError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       CodeProvider,
		Message:    fmt.Sprintf("provider error: %s", provider),
		Cause:      cause,
	}
}

// NewCredentialsMissingError reports a feature whose credentials are not configured
func NewCredentialsMissingError(feature string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConfiguration,
		StatusCode: http.StatusServiceUnavailable,
		Code:       CodeCredentialsMissing,
		Message:    fmt.Sprintf("%s is not configured", feature),
	}
}

// NewSynthesisCanceledError reports speech synthesis that produced no audio
func NewSynthesisCanceledError(reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       CodeSynthesisCanceled,
		Message:    fmt.Sprintf("speech synthesis canceled: %s", reason),
	}
}

// NewUnsupportedLanguageError reports a language code the backend cannot handle
func NewUnsupportedLanguageError(code string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeUnsupportedLanguage,
		Message:    fmt.Sprintf("unsupported language: %s", code),
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternal,
		Message:    message,
		Cause:      cause,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       CodeConflict,
		Message:    message,
	}
}

// NewInsufficientTokensError reports a balance too low for a spend
func NewInsufficientTokensError(balance, required int64) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusPaymentRequired,
		Code:       CodeInsufficientTokens,
		Message:    fmt.Sprintf("insufficient tokens: balance %d, required %d", balance, required),
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		Message:    message,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       CodeForbidden,
		Message:    message,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimit,
		Message:    "rate limit exceeded, please try again later",
	}
}

// Categorize categorizes an existing error, defaulting to an internal error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// HasCode reports whether err is a categorized error carrying code
func HasCode(err error, code string) bool {
	var catErr *CategorizedError
	return errors.As(err, &catErr) && catErr.Code == code
}

// IsSystemError determines if an error is a system error (5xx)
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= http.StatusInternalServerError
}
