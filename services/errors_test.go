package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "tool not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "tool not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name:    "error with wrapped error",
			err:     &DomainError{Type: ErrorTypeExternal, Message: "place search failed", Err: errors.New("timeout")},
			wantMsg: "external: place search failed (timeout)",
		},
		{
			name:    "error without wrapped error",
			err:     &DomainError{Type: ErrorTypeValidation, Message: "invalid input"},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same error type", NewDomainError(ErrorTypeValidation, "bad", nil), ErrEmptyHistory, true},
		{"different error type", NewDomainError(ErrorTypeValidation, "bad", nil), ErrProviderError, false},
		{"not a domain error", NewDomainError(ErrorTypeNotFound, "missing", nil), errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)
	err.WithDetail("limit", 20).WithDetail("retry_after_seconds", 12)

	assert.Equal(t, 20, err.Details["limit"])
	assert.Equal(t, 12, err.Details["retry_after_seconds"])
}

func TestErrorTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", NewDomainError(ErrorTypeNotFound, "tool not found", nil), IsNotFoundError, true},
		{"wrapped validation", fmt.Errorf("wrapped: %w", ErrEmptyHistory), IsValidationError, true},
		{"rate limit", ErrRateLimitExceeded, IsRateLimitError, true},
		{"timeout", ErrAgentTimeout, IsTimeoutError, true},
		{"internal", ErrMaxIterations, IsInternalError, true},
		{"external", ErrSearchFailed, IsExternalError, true},
		{"external is not internal", ErrProviderError, IsInternalError, false},
		{"regular error", errors.New("regular"), IsExternalError, false},
		{"nil error", nil, IsNotFoundError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeValidation, GetErrorType(ErrUnknownCategory))
	assert.Equal(t, ErrorTypeExternal, GetErrorType(fmt.Errorf("ctx: %w", ErrProviderRateLimit)))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("regular")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)
	err.WithDetail("field", "messages")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "messages", details["field"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapHelpers(t *testing.T) {
	baseErr := errors.New("connection refused")

	wrapped := WrapInternal("failed to query", baseErr)
	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeInternal, domainErr.Type)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
	assert.True(t, IsInternalError(wrapped))
}
