package services

import "errors"

// Sentinel errors returned by the auth services. Handlers map these onto HTTP
// statuses; anything else is treated as a storage failure.
var (
	ErrMissingContact         = errors.New("contact identifier is required")
	ErrUnsupportedContactType = errors.New("unsupported contact type")
	ErrCodeNotFound           = errors.New("one-time code not found")
	ErrCodeExpired            = errors.New("one-time code has expired")
	ErrSessionNotFound        = errors.New("session not found")
)
