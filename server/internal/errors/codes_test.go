package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AIError
		want int
	}{
		{Unauthorized("x"), http.StatusUnauthorized},
		{RateLimitExceeded("x"), http.StatusTooManyRequests},
		{InvalidArgument("x"), http.StatusBadRequest},
		{NotFound("x"), http.StatusNotFound},
		{PayloadTooLarge("x"), http.StatusRequestEntityTooLarge},
		{ServiceUnavailable("x"), http.StatusServiceUnavailable},
		{LLMUnavailable("x", nil), http.StatusBadGateway},
		{Internal("x", nil), http.StatusInternalServerError},
		{&AIError{Code: ErrCodeTimeout}, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
	}{
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusMethodNotAllowed, ErrCodeInvalidArgument},
		{http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge},
		{http.StatusUnauthorized, ErrCodeUnauthorized},
		{http.StatusBadGateway, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromHTTPStatus(tt.status, "x")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.status, err.HTTPStatus())
		})
	}
}

func TestFrom(t *testing.T) {
	notFound := NotFound("chat not found")
	wrapped := fmt.Errorf("handler: %w", notFound)
	assert.Same(t, notFound, From(wrapped, ErrCodeInternal, "ignored"))

	assert.Equal(t, ErrCodeContextCanceled, From(context.Canceled, ErrCodeInternal, "x").Code)
	assert.Equal(t, ErrCodeTimeout, From(fmt.Errorf("llm: %w", context.DeadlineExceeded), ErrCodeInternal, "x").Code)

	plain := From(stderrors.New("boom"), ErrCodeLLMUnavailable, "provider failed")
	assert.Equal(t, ErrCodeLLMUnavailable, plain.Code)
	assert.Equal(t, "[LLM_UNAVAILABLE] provider failed: boom", plain.Error())
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", InvalidArgument("bad"))
	assert.True(t, IsCode(err, ErrCodeInvalidArgument))
	assert.False(t, IsCode(err, ErrCodeNotFound))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(stderrors.New("x"), ErrCodeInternal))
	assert.Equal(t, ErrCodeInvalidArgument, GetCodeFromError(err, ErrCodeInternal))
}
