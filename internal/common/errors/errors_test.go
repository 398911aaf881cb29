// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Classification Tests
// ==========================

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeValidationFailed, "VALIDATION"},
		{ErrCodeApplicationValidationFailed, "VALIDATION"},
		{ErrCodeInvalidIdentifier, "VALIDATION"},
		{ErrCodeJobListingNotFound, "NOT_FOUND"},
		{ErrCodeApplicationNotFound, "NOT_FOUND"},
		{ErrCodeResourceNotFound, "NOT_FOUND"},
		{ErrCodeDuplicateApplication, "CONFLICT"},
		{ErrCodeSlugConflict, "CONFLICT"},
		{ErrCodeInvalidStateTransition, "CONFLICT"},
		{ErrCodeAuthenticationError, "AUTH"},
		{ErrCodeQueryExecutionFailed, "INTERNAL"},
		{ErrCodeNotificationSendFailed, "INTERNAL"},
		{ErrCodeInternal, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *StandardError
		want int
	}{
		{NewValidationError("bad input"), http.StatusBadRequest},
		{NewInvalidIdentifierError("oops"), http.StatusBadRequest},
		{NewJobListingNotFoundError("x"), http.StatusNotFound},
		{NewDuplicateApplicationError("a@b.c", "x"), http.StatusConflict},
		{NewAlreadyPublishedError("x"), http.StatusConflict},
		{NewNotPublishedError("x"), http.StatusConflict},
		{NewAuthenticationError("no token"), http.StatusUnauthorized},
		{NewInternalError(fmt.Errorf("boom")), http.StatusInternalServerError},
		{NewQueryExecutionFailedError("op", fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

// ==========================
// Predicate Tests
// ==========================

func TestPredicates(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("x")))
	assert.True(t, IsValidation(NewInvalidIdentifierError("x")))
	assert.False(t, IsValidation(NewJobListingNotFoundError("x")))

	assert.True(t, IsNotFound(NewApplicationNotFoundError("x")))
	assert.False(t, IsNotFound(NewDuplicateApplicationError("a@b.c", "x")))

	assert.True(t, IsConflict(NewSlugConflictError("x")))
	assert.True(t, IsConflict(NewAlreadyPublishedError("x")))
	assert.False(t, IsConflict(NewValidationError("x")))

	assert.False(t, IsValidation(fmt.Errorf("plain error")))
	assert.False(t, IsNotFound(nil))
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("submit failed: %w", NewDuplicateApplicationError("a@b.c", "job-1"))

	assert.True(t, IsConflict(wrapped))
	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeDuplicateApplication, stdErr.Code)
}

// ==========================
// Normalization Tests
// ==========================

func TestFromError(t *testing.T) {
	original := NewSlugConflictError("taken")
	assert.Same(t, original, FromError(original))

	normalized := FromError(fmt.Errorf("disk on fire"))
	assert.Equal(t, ErrCodeInternal, normalized.Code)
	assert.True(t, normalized.Retryable)
	assert.Equal(t, "disk on fire", normalized.Details)
}

// ==========================
// Retry Policy Tests
// ==========================

func TestRetryPolicy(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeQueryExecutionFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeNotificationSendFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeMediaUploadFailed))
	assert.Equal(t, 2, GetRetryCount("TIMEOUT_ERROR"))
	assert.Equal(t, 0, GetRetryCount(ErrCodeDuplicateApplication))

	assert.True(t, IsRetryableErrorCode(ErrCodeDatabaseInsertFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeValidationFailed))
}
