package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeRoleNotFound        = "ROLE_RECORD_NOT_FOUND"
	textCodeResolutionExhausted = "ROLE_RESOLUTION_EXHAUSTED"
	textCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	textCodeProviderUnavailable = "IDENTITY_PROVIDER_UNAVAILABLE"
	textCodeSignInInFlight      = "SIGN_IN_IN_FLIGHT"
)

// ErrRoleNotFound is returned by a RoleStore when no role record exists for
// the principal. It marks the "record not yet replicated" case that the
// resolver recovers from by creating a default record.
var ErrRoleNotFound = errors.New("role record not found", errors.CategoryNotFound).
	WithTextCode(textCodeRoleNotFound).
	WithCode(errors.CodeNotFound)

// ErrResolutionExhausted is returned after the bounded retry budget is spent
// without producing a role. Fatal for the current session: the caller must
// force a sign-out, an authenticated-but-roleless state never persists.
var ErrResolutionExhausted = errors.New("role resolution exhausted retries", errors.CategoryOperation).
	WithTextCode(textCodeResolutionExhausted).
	WithCode(errors.CodeInternal)

// ErrInvalidCredentials is returned when the provider rejects a sign-in.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrSignInInFlight is returned when a sign-in is requested while another one
// is still pending; concurrent attempts are coalesced, not stacked.
var ErrSignInInFlight = errors.New("a sign in attempt is already in flight", errors.CategoryConflict).
	WithTextCode(textCodeSignInInFlight).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token cannot be parsed or its
// signature does not verify.
var ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// WrapProviderErr normalizes a transport-level provider failure.
func WrapProviderErr(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryOperation, msg).
		WithTextCode(textCodeProviderUnavailable)
}

// IsRoleNotFound distinguishes the explicit "no record" answer from a query
// failure.
func IsRoleNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRoleNotFound) {
		return true
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == textCodeRoleNotFound ||
			richErr.Category == errors.CategoryNotFound
	}

	return strings.Contains(err.Error(), "no rows in result set")
}

// IsResolutionExhausted reports whether the error is the resolver's terminal
// failure.
func IsResolutionExhausted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrResolutionExhausted) {
		return true
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == textCodeResolutionExhausted
	}

	return false
}
