package errors

import (
	"errors"
	"fmt"
)

var (
	ErrTooManyLoginAttempts  = errors.New("too many failed login attempts")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailAlreadyInUse     = errors.New("email already in use")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrFingerprintMismatch   = errors.New("device fingerprint mismatch")
)

// ErrTokenReuseDetected marks a replay of an already-rotated refresh token.
// It unwraps to ErrInvalidOrExpiredToken so callers that only distinguish
// 401-class failures need no special case, while the session service can
// still detect the reuse and escalate.
var ErrTokenReuseDetected = fmt.Errorf("refresh token reuse detected: %w", ErrInvalidOrExpiredToken)
