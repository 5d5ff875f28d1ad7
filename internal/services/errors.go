package services

import "errors"

// Error taxonomy shared by every service. Handlers map these onto HTTP
// statuses and the realtime channel maps them onto error events; services
// themselves only wrap and return them.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrAlreadyMember    = errors.New("already a member")
	ErrEmailMismatch    = errors.New("email mismatch")
	ErrInvalidToken     = errors.New("invalid token")
	ErrConflict         = errors.New("conflict")
)
