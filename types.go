package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// EventKind identifies a lifecycle event emitted by the identity provider.
type EventKind string

const (
	// EventInitialSession is the session snapshot observed at startup.
	EventInitialSession EventKind = "INITIAL_SESSION"
	// EventSignedIn is emitted after a successful credential verification.
	EventSignedIn EventKind = "SIGNED_IN"
	// EventTokenRefreshed is emitted when the provider rotates token material.
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	// EventSignedOut is emitted when the session is invalidated.
	EventSignedOut EventKind = "SIGNED_OUT"
)

// Event is a provider lifecycle event. Session is nil for EventSignedOut and
// may be nil for any kind when the provider holds no live session.
type Event struct {
	Kind    EventKind
	Session *SessionObject
}

// SignedOut reports whether the event describes the absence of a session.
// Providers do not guarantee a nil session only on EventSignedOut, so both
// conditions are treated as equivalent.
func (e Event) SignedOut() bool {
	return e.Kind == EventSignedOut || e.Session == nil || e.Session.User.ID == ""
}

// IdentityClient is the hosted identity provider consumed by the core. It
// verifies credentials, issues sessions, and publishes lifecycle events.
// Implementations must deliver events to a subscriber in emission order.
type IdentityClient interface {
	// CurrentSession returns the live session snapshot, or (nil, nil) when
	// no principal is signed in.
	CurrentSession(ctx context.Context) (*SessionObject, error)
	Subscribe(fn func(Event)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
}

// RoleStore is the role-record storage backend. GetRole returns
// ErrRoleNotFound when no record exists for the principal, which callers
// distinguish from a query error.
type RoleStore interface {
	GetRole(ctx context.Context, userID string) (Role, error)
	// UpsertDefaultRole creates the principal's role record if it does not
	// exist yet. A concurrent creator is not an error.
	UpsertDefaultRole(ctx context.Context, userID, email string, role Role) error
}

// Config holds the session core tunables.
type Config interface {
	GetMaxRoleAttempts() int
	GetRoleRetryInterval() int
	GetExpiryWarningWindow() int
	GetDefaultRole() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

// DefaultLogger returns the stdout logger used when no logger is injected.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
