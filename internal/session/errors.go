package session

import "errors"

var (
	// ErrSessionNotFound means the session expired, was revoked or never existed.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBusy is returned by Begin while another submission is in flight.
	ErrBusy = errors.New("session is busy")
	// ErrInvalidToken covers malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid session token")
)
