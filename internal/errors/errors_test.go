package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Chat not found")
		assert.Equal(t, "NOT_FOUND: Chat not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "DATABASE_ERROR")
		assert.Contains(t, err.Error(), "Database error")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "text", "reason": "too long"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
		expectedKind Kind
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized, KindDenied},
		{"Forbidden", func() *AppError { return Forbidden("test") }, ErrCodeForbidden, KindDenied},
		{"InvalidToken", func() *AppError { return InvalidToken("test") }, ErrCodeInvalidToken, KindDenied},
		{"TokenExpired", func() *AppError { return TokenExpired() }, ErrCodeTokenExpired, KindDenied},
		{"NotParticipant", func() *AppError { return NotParticipant() }, ErrCodeNotParticipant, KindDenied},
		{"NotFound", func() *AppError { return NotFound("Chat") }, ErrCodeNotFound, KindNotFound},
		{"Conflict", func() *AppError { return Conflict("test") }, ErrCodeConflict, KindDenied},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation, KindValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("chatId", "malformed") }, ErrCodeInvalidInput, KindValidation},
		{"MissingRequired", func() *AppError { return MissingRequired("text") }, ErrCodeMissingRequired, KindValidation},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded() }, ErrCodeRateLimitExceeded, KindDenied},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal, KindInternal},
		{"Database", func() *AppError { return Database(errors.New("boom")) }, ErrCodeDatabase, KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.Equal(t, tc.expectedKind, err.Kind())
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestIsAppError(t *testing.T) {
	t.Run("returns true for AppError", func(t *testing.T) {
		assert.True(t, IsAppError(New(ErrCodeNotFound, "test")))
	})

	t.Run("returns false for standard error", func(t *testing.T) {
		assert.False(t, IsAppError(errors.New("standard error")))
	})

	t.Run("returns true for fmt-wrapped AppError", func(t *testing.T) {
		wrapped := fmt.Errorf("send: %w", NotParticipant())
		assert.True(t, IsAppError(wrapped))
		assert.True(t, Is(wrapped, ErrCodeNotParticipant))
	})
}

func TestNormalize(t *testing.T) {
	t.Run("keeps AppError as is", func(t *testing.T) {
		original := NotFound("Message")
		assert.Same(t, original, Normalize(original))
	})

	t.Run("hides unknown errors behind internal", func(t *testing.T) {
		cause := errors.New("pq: relation does not exist")
		normalized := Normalize(cause)
		assert.Equal(t, ErrCodeInternal, normalized.Code)
		assert.NotContains(t, normalized.Message, "pq:")
		assert.Equal(t, cause, normalized.Unwrap())
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, GetCode(New(ErrCodeNotFound, "test")))
	})

	t.Run("returns ErrCodeInternal for standard error", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("standard error")))
	})
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Chat not found", NotFound("Chat").Message)
	assert.Equal(t, "Message not found", NotFound("Message").Message)
}
