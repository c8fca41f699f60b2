package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "rate_limit", ErrorTypeRateLimit.String())
	assert.Equal(t, "empty_response", ErrorTypeEmptyResponse.String())
	assert.Equal(t, "service_unavailable", ErrorTypeServiceUnavailable.String())
	assert.Equal(t, "invalid", ErrorType(42).String())
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeRateLimit, ErrorTypeTransient, ErrorTypeEmptyResponse}
	for _, et := range retryable {
		assert.True(t, NewError(et, "x").IsRetryable(), et.String())
	}
	final := []ErrorType{ErrorTypeAuth, ErrorTypeBadPrompt, ErrorTypeUnknown, ErrorTypeServiceUnavailable}
	for _, et := range final {
		assert.False(t, NewError(et, "x").IsRetryable(), et.String())
	}
}

func TestIsAndTypeOfThroughWrapping(t *testing.T) {
	base := NewErrorWithStatus(ErrorTypeAuth, 401, "bad key")
	wrapped := fmt.Errorf("phase 1 research: %w", base)

	assert.True(t, Is(wrapped, ErrorTypeAuth))
	assert.False(t, Is(wrapped, ErrorTypeTransient))
	assert.Equal(t, ErrorTypeAuth, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestServiceUnavailableKeepsCause(t *testing.T) {
	cause := NewError(ErrorTypeTransient, "502 bad gateway")
	err := NewServiceUnavailableError(cause, 3)

	assert.True(t, IsServiceUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestTypeForStatus(t *testing.T) {
	tests := map[int]ErrorType{
		429: ErrorTypeRateLimit,
		401: ErrorTypeAuth,
		403: ErrorTypeAuth,
		400: ErrorTypeBadPrompt,
		413: ErrorTypeBadPrompt,
		500: ErrorTypeTransient,
		529: ErrorTypeTransient,
		408: ErrorTypeTransient,
		200: ErrorTypeUnknown,
	}
	for status, want := range tests {
		assert.Equal(t, want, TypeForStatus(status), "status %d", status)
	}
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))
	assert.Equal(t, context.Canceled, Classify(context.Canceled))

	already := NewError(ErrorTypeBadPrompt, "too long")
	assert.Same(t, already, Classify(already))

	tests := []struct {
		msg  string
		want ErrorType
	}{
		{"429 Too Many Requests", ErrorTypeRateLimit},
		{"invalid api key", ErrorTypeAuth},
		{"read: connection reset by peer", ErrorTypeTransient},
		{"unexpected EOF", ErrorTypeTransient},
		{"400 invalid_request_error", ErrorTypeBadPrompt},
		{"something odd", ErrorTypeUnknown},
	}
	for _, tt := range tests {
		err := Classify(errors.New(tt.msg))
		require.Error(t, err)
		assert.Equal(t, tt.want, TypeOf(err), tt.msg)
	}
}

func TestSanitizePrompt(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, SanitizePrompt(short, 1000))

	long := strings.Repeat("a", 300) + strings.Repeat("b", 300)
	out := SanitizePrompt(long, 200)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 100)))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("b", 100)))
	assert.Contains(t, out, "[600 chars, hash:")
}
