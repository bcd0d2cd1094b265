package xerrors

import "errors"

// Generic
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Verification codes
var (
	ErrInvalidCode     = errors.New("invalid code")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrTooManyRequests = errors.New("too many requests")
)

// Claim conflicts
var (
	ErrAlreadyLinkedToOther     = errors.New("participant already linked to another user")
	ErrAlreadyParticipantInPlan = errors.New("user already has a participant in this plan")
)
