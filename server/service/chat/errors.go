package chat

import (
	"github.com/pkg/errors"

	apperrors "github.com/t3clone/t3chat/server/internal/errors"
	"github.com/t3clone/t3chat/store"
)

func errLLMUnavailable(err error) error {
	return apperrors.LLMUnavailable("model provider unavailable", err)
}

// notFoundOr maps store.ErrNotFound to a NOT_FOUND error and wraps anything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(what + " not found")
	}
	return apperrors.Internal("failed to load "+what, err)
}
