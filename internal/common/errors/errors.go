// Package errors provides standardized error handling for the job board service.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed            ErrorCode = "VALIDATION_FAILED"
	ErrCodeApplicationValidationFailed ErrorCode = "APPLICATION_VALIDATION_FAILED"
	ErrCodeInvalidIdentifier           ErrorCode = "INVALID_IDENTIFIER"

	ErrCodeJobListingNotFound  ErrorCode = "JOB_LISTING_NOT_FOUND"
	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeResourceNotFound    ErrorCode = "RESOURCE_NOT_FOUND"

	ErrCodeDuplicateApplication   ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeSlugConflict           ErrorCode = "SLUG_CONFLICT"
	ErrCodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeMediaUploadFailed      ErrorCode = "MEDIA_UPLOAD_FAILED"

	ErrCodeAuthenticationError ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationValidationFailedError creates a non-retryable application validation error.
func NewApplicationValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationValidationFailed,
		Message:   "Application data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidIdentifierError creates a non-retryable malformed identifier error.
func NewInvalidIdentifierError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidIdentifier,
		Message:   "Malformed identifier",
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobListingNotFoundError creates a non-retryable job listing lookup error.
func NewJobListingNotFoundError(idOrSlug string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobListingNotFound,
		Message:   "Job listing not found",
		Details:   fmt.Sprintf("jobListing: %s", idOrSlug),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFoundError creates a non-retryable application lookup error.
func NewApplicationNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResourceNotFoundError creates a non-retryable resource lookup error.
func NewResourceNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("Resource not found: %s", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateApplicationError creates a non-retryable duplicate application error.
func NewDuplicateApplicationError(candidateEmail, jobListingID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "Application already exists for this candidate and job listing",
		Details:   fmt.Sprintf("candidateEmail: %s, jobListingId: %s", candidateEmail, jobListingID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSlugConflictError creates a non-retryable slug uniqueness error.
func NewSlugConflictError(slug string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSlugConflict,
		Message:   "Slug is already in use by another job listing",
		Details:   fmt.Sprintf("slug: %s", slug),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyPublishedError creates a non-retryable state transition error.
func NewAlreadyPublishedError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStateTransition,
		Message:   "Job listing is already published",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotPublishedError creates a non-retryable state transition error.
func NewNotPublishedError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStateTransition,
		Message:   "Job listing is not currently published",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMediaUploadFailedError creates a retryable blob storage upload error.
func NewMediaUploadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMediaUploadFailed,
		Message:   "Media upload to blob storage failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError creates a non-retryable authentication error.
func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationError,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError creates a retryable external service error.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError creates a retryable internal error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal server error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Error Classification
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTHENTICATION"):
		return "AUTH"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "DUPLICATE") || strings.Contains(codeStr, "CONFLICT") || strings.Contains(codeStr, "TRANSITION"):
		return "CONFLICT"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "INTERNAL"
	}
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeMediaUploadFailed,
		"EXTERNAL_SERVICE_ERROR":
		return 3 // Retryable technical errors

	case "TIMEOUT_ERROR":
		return 2 // Partial retry for timeouts

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// AsStandardError extracts a *StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return GetErrorCategory(stdErr.Code) == "VALIDATION"
	}
	return false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return GetErrorCategory(stdErr.Code) == "NOT_FOUND"
	}
	return false
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return GetErrorCategory(stdErr.Code) == "CONFLICT"
	}
	return false
}

// ==========================
// 4. HTTP Response Mapping
// ==========================

// HTTPStatus maps the error to the status code surfaced at the API boundary.
func (e *StandardError) HTTPStatus() int {
	switch GetErrorCategory(e.Code) {
	case "VALIDATION":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "CONFLICT":
		return http.StatusConflict
	case "AUTH":
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// FromError normalizes any error into a StandardError, wrapping unknown
// errors as internal.
func FromError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}
