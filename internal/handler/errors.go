package handler

import (
	"errors"

	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/response"
)

// errorCode maps a core error to the code sent to clients.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAction):
		return response.CodeInvalidAction
	case errors.Is(err, domain.ErrValidation):
		return response.CodeValidation
	default:
		return response.CodeInternal
	}
}
