package core

import (
	"errors"
	"fmt"
)

// Error classes. Concrete errors wrap one of these so callers can branch on
// errors.Is(err, ErrNotFound) and friends.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrCannotConsume   = errors.New("cannot consume")
	ErrProviderFailure = errors.New("provider failure")
	ErrAuth            = errors.New("auth failure")
	ErrInvalid         = errors.New("invalid argument")
)

var (
	ErrRoomNotFound      = fmt.Errorf("room %w", ErrNotFound)
	ErrPeerNotFound      = fmt.Errorf("peer %w", ErrNotFound)
	ErrTransportNotFound = fmt.Errorf("transport %w", ErrNotFound)
	ErrProducerNotFound  = fmt.Errorf("producer %w", ErrNotFound)
	ErrConsumerNotFound  = fmt.Errorf("consumer %w", ErrNotFound)
	// ErrProducerGone is returned when a producer closed between discovery
	// and consume.
	ErrProducerGone = fmt.Errorf("producer gone: %w", ErrNotFound)

	ErrTransportNotConnected = fmt.Errorf("transport not connected: %w", ErrConflict)
	ErrWrongDirection        = fmt.Errorf("wrong transport direction: %w", ErrConflict)
	ErrNotOwner              = fmt.Errorf("resource belongs to another peer: %w", ErrConflict)
	ErrRoomNotEmpty          = fmt.Errorf("room is not empty: %w", ErrConflict)
	// ErrRoomClosed is seen by callers that raced an eviction; re-fetching
	// the room creates a fresh one.
	ErrRoomClosed = fmt.Errorf("room closed: %w", ErrNotFound)

	ErrProviderTimeout = fmt.Errorf("timed out: %w", ErrProviderFailure)
)

// IsCallerError reports whether err is a lookup or state error the caller
// can recover from, as opposed to a provider failure.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrCannotConsume) ||
		errors.Is(err, ErrInvalid)
}
