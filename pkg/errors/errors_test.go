package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapsCause(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := Internal("Failed to append message", cause)

	assert.Equal(t, "INTERNAL_ERROR: Failed to append message: deadline exceeded", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestIsSeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("open session: %w", ChatDisabled("c1"))

	assert.True(t, Is(wrapped, "CHAT_DISABLED"))
	assert.False(t, Is(wrapped, "NOT_FOUND"))
	assert.False(t, Is(errors.New("plain"), "CHAT_DISABLED"))
	assert.False(t, Is(nil, "CHAT_DISABLED"))
}

func TestStatuses(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NotFound("Conversation", nil), "NOT_FOUND", http.StatusNotFound},
		{BadRequest("bad", nil), "BAD_REQUEST", http.StatusBadRequest},
		{Unauthorized("no", nil), "UNAUTHORIZED", http.StatusUnauthorized},
		{Forbidden("no", nil), "FORBIDDEN", http.StatusForbidden},
		{TooManyRequests("slow down"), "TOO_MANY_REQUESTS", http.StatusTooManyRequests},
		{Conflict("exists"), "CONFLICT", http.StatusConflict},
		{SessionClosed(), "SESSION_CLOSED", http.StatusGone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.Equal(t, tt.status, tt.err.Status, tt.code)
	}
	assert.Equal(t, "Conversation not found", NotFound("Conversation", nil).Message)
}
