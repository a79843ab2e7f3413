package auth

import (
	"fmt"
	"time"
)

// SessionObject is the provider-issued credential bundle bound to a
// principal. Owned by the session store; replaced wholesale on every provider
// event, never mutated in place.
type SessionObject struct {
	AccessToken string         `json:"access_token,omitempty"`
	ExpiresAt   time.Time      `json:"expires_at,omitempty"`
	User        Principal      `json:"user,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// SameIdentity reports whether other carries the same token material. The
// timeout guard uses this to decide whether timers need rescheduling.
func (s *SessionObject) SameIdentity(other *SessionObject) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.AccessToken == other.AccessToken
}

// ExpiredAt reports whether the session is past its expiry at the given time.
func (s *SessionObject) ExpiredAt(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.After(now)
}

// TODO: enable only in development!
func (s SessionObject) String() string {
	return fmt.Sprintf(
		"user=%s email=%s expires_at=%s",
		s.User.ID,
		s.User.Email,
		s.ExpiresAt.Format(time.RFC1123),
	)
}
