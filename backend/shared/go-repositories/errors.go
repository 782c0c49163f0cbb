package repositories

import "errors"

var (
	// ErrInviteNotFound: no invite carries the presented token hash.
	ErrInviteNotFound = errors.New("invite_not_found")
	// ErrInviteExpired: the invite was still pending but its 48h window has closed.
	ErrInviteExpired = errors.New("invite_expired")
)
