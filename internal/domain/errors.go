package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or empty required input. It is surfaced
	// to the caller as a rejected request.
	ErrValidation = errors.New("validation error")

	// ErrUnknownTarget marks a signaling envelope whose room, viewer or
	// broadcaster does not exist. It is logged and dropped.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrInvalidAction marks an unrecognized control-action token.
	ErrInvalidAction = errors.New("invalid action")

	// ErrConnectionClosed marks a send to a connection that is not open.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrRoleConflict is returned when a room's broadcaster tries to join
	// the same room as a viewer.
	ErrRoleConflict = fmt.Errorf("%w: connection is the room's broadcaster", ErrValidation)
)
