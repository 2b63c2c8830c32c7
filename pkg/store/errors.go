package store

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrUserTableFull      = errors.New("maximum user limit reached")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTooLong    = errors.New("username exceeds 20 characters")
	ErrEmptyUsername      = errors.New("username cannot be empty")
	ErrInvalidRole        = errors.New("invalid role value")
	ErrCannotMuteAdmin    = errors.New("cannot mute an admin")

	ErrDuplicateChannel   = errors.New("channel name already exists")
	ErrChannelTableFull   = errors.New("maximum channel limit reached")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrChannelNameTooLong = errors.New("channel name exceeds 30 characters")
	ErrProtectedChannel   = errors.New("cannot delete default channels")
	ErrInvalidChannel     = errors.New("invalid channel ID")

	ErrInvalidIndex      = errors.New("message index out of range")
	ErrReactionSlotsFull = errors.New("no reaction slots available")
)
