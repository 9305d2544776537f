package main

import "errors"

// Authentication failures. The triggering message is dropped.
var (
	ErrUnauthorized = errors.New("unauthorized access")
)

// Lookups that found nothing. No state is mutated.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrInviteNotFound = errors.New("invite not found")
	ErrUserNotFound   = errors.New("user not found")
)

// Recoverable invariant violations.
var (
	ErrAlreadyQueued      = errors.New("already queued")
	ErrNotQueued          = errors.New("not queued")
	ErrInviteLimit        = errors.New("you have already sent three invites to this user")
	ErrInviteNotPending   = errors.New("invite is no longer pending")
	ErrNotInvitee         = errors.New("invite was sent to another user")
	ErrSelfInvite         = errors.New("cannot invite yourself")
	ErrInviterUnavailable = errors.New("inviter is not available")
	ErrNotParticipant     = errors.New("not a participant of this room")
	ErrAlreadyInMatch     = errors.New("already in a match")
	ErrBadPayload         = errors.New("malformed payload")
	ErrUnknownEvent       = errors.New("unknown event")
)

var publicErrors = []error{
	ErrUnauthorized,
	ErrRoomNotFound, ErrInviteNotFound, ErrUserNotFound,
	ErrAlreadyQueued, ErrNotQueued, ErrInviteLimit, ErrInviteNotPending,
	ErrNotInvitee, ErrSelfInvite, ErrInviterUnavailable, ErrNotParticipant,
	ErrAlreadyInMatch, ErrBadPayload, ErrUnknownEvent,
	ErrTooManyRooms,
}

// publicError maps err to the message a client may see. Anything not in
// the known set is reported as an internal error.
func publicError(err error) error {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known
		}
	}
	return errInternal
}

var errInternal = errors.New("internal error")
