package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnregisteredUser = errors.New("unregistered user")
	ErrRoomNotFound     = errors.New("no such room")
	ErrRoomFull         = errors.New("room full")
	ErrAlreadyJoined    = errors.New("player already in room")
	ErrNotSeated        = errors.New("player not seated")
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrExternalService wraps store and token source failures.
	ErrExternalService = errors.New("external service failure")
)

func external(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExternalService, op, err)
}

// IsDomain reports whether err is an expected rejection rather than an infrastructure failure.
func IsDomain(err error) bool {
	for _, target := range []error{ErrUnregisteredUser, ErrRoomNotFound, ErrRoomFull, ErrAlreadyJoined, ErrNotSeated, ErrUnknownEventType} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
