package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    *Error
		typ    ErrorType
		status int
	}{
		{"validation", ValidationError("bad"), TypeValidation, http.StatusBadRequest},
		{"not found", NotFoundError("missing"), TypeNotFound, http.StatusNotFound},
		{"rate limited", RateLimitedError("slow down"), TypeRateLimited, http.StatusTooManyRequests},
		{"unavailable", UnavailableError("full", cause), TypeUnavailable, http.StatusServiceUnavailable},
		{"internal", InternalError("oops", cause), TypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.NotNil(t, tt.err.Context)
			assert.Contains(t, tt.err.Error(), string(tt.typ))
		})
	}
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := InternalError("send failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal: send failed: socket closed", err.Error())
}

func TestWithField(t *testing.T) {
	err := ValidationError("invalid range").WithField("min", 10).WithField("max", 5)

	assert.Equal(t, map[string]any{"min": 10, "max": 5}, err.Context)
	assert.Equal(t, ErrorResponse{
		Error:   "invalid range",
		Type:    TypeValidation,
		Context: map[string]any{"min": 10, "max": 5},
	}, err.ToResponse())
}

func TestWithField_NilContext(t *testing.T) {
	err := &Error{Type: TypeInternal, Message: "x"}
	err.WithField("k", "v")
	assert.Equal(t, "v", err.Context["k"])
}

func TestAsStructuredError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})

	t.Run("structured passes through", func(t *testing.T) {
		orig := NotFoundError("gone")
		wrapped := fmt.Errorf("handler: %w", orig)
		assert.Same(t, orig, AsStructuredError(wrapped))
	})

	t.Run("invalid simulation input", func(t *testing.T) {
		err := AsStructuredError(fmt.Errorf("%w: min 10 > max 5", domain.ErrInvalidRange))
		require.NotNil(t, err)
		assert.Equal(t, TypeValidation, err.Type)
		assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
		assert.ErrorIs(t, err, domain.ErrInvalidSimulationInput)
	})

	t.Run("invalid loss percent", func(t *testing.T) {
		err := AsStructuredError(domain.ErrInvalidLossPercent)
		assert.Equal(t, TypeValidation, err.Type)
	})

	t.Run("engine stopped", func(t *testing.T) {
		err := AsStructuredError(domain.ErrEngineStopped)
		assert.Equal(t, TypeUnavailable, err.Type)
		assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())
	})

	t.Run("unknown", func(t *testing.T) {
		cause := errors.New("disk on fire")
		err := AsStructuredError(cause)
		assert.Equal(t, TypeInternal, err.Type)
		assert.Equal(t, "internal server error", err.Message)
		assert.ErrorIs(t, err, cause)
	})
}
