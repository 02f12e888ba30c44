package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without
// leaking infrastructure details. Callers discriminate with errors.Is,
// never by matching message text.
var (
	ErrInvalidCaptcha     = errors.New("invalid captcha")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrAccountNotFound    = errors.New("account not found")
	ErrRoleMismatch       = errors.New("role mismatch")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrMalformedToken     = errors.New("malformed token")
	ErrExpiredToken       = errors.New("expired token")

	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
)
