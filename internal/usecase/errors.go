package usecase

import (
	"errors"
	"fmt"
	"time"
)

// Expected negative outcomes of the verification state machine. Callers can
// branch on these without inspecting infrastructure errors.
var (
	// ErrTokenNotFound indicates no record exists for the supplied token or
	// identifier.
	ErrTokenNotFound = errors.New("verification token not found")
	// ErrTokenExpired indicates the record's TTL elapsed; the record has been
	// removed.
	ErrTokenExpired = errors.New("verification token expired")
	// ErrAlreadyVerified indicates the record was consumed by an earlier
	// successful validation.
	ErrAlreadyVerified = errors.New("already verified")
	// ErrInvalidCode indicates an OTP mismatch within the attempt budget.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrTooManyAttempts indicates the OTP attempt cap was exceeded; the
	// record has been removed.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrUnsupportedPurpose indicates an unknown verification purpose.
	ErrUnsupportedPurpose = errors.New("unsupported verification purpose")

	// ErrStoreUnavailable is an infrastructure fault, safe to retry. It is
	// distinct from every expected negative outcome above.
	ErrStoreUnavailable = errors.New("verification store unavailable")

	// ErrUserNotFound indicates the account store has no user for the
	// validated identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserStoreUnavailable indicates no account store is wired, so
	// operations that must touch it cannot proceed.
	ErrUserStoreUnavailable = errors.New("user store unavailable")
)

// RateLimitExceededError reports a refused issuance with a retry hint derived
// from the remaining window TTL.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}
