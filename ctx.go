package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// StateContextKey is the router locals key the route guard stores the auth
// snapshot under.
const StateContextKey = "auth_state"

var principalCtxKey = &contextKey{"principal"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithContext sets the Principal in the given context
func WithContext(r context.Context, principal *Principal) context.Context {
	return context.WithValue(r, principalCtxKey, principal)
}

// FromContext finds the principal from the context.
func FromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok
}

// WithSessionContext sets the SessionObject in the given context
func WithSessionContext(r context.Context, session *SessionObject) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext extracts the SessionObject from the standard context
func SessionFromContext(ctx context.Context) (*SessionObject, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionObject)
	return raw, ok
}

// StateFromRouter extracts the auth snapshot the route guard stored on the
// request. The zero state is returned when no guard ran.
func StateFromRouter(ctx router.Context) (AuthState, bool) {
	raw := ctx.Locals(StateContextKey)
	if raw == nil {
		return AuthState{}, false
	}
	state, ok := raw.(AuthState)
	return state, ok
}

// HasRole reports whether the request's auth snapshot carries at least
// minRole. False when no guard ran.
func HasRole(ctx router.Context, minRole Role) bool {
	state, ok := StateFromRouter(ctx)
	if !ok || !state.Authenticated() {
		return false
	}
	return RoleAtLeast(state.Role, minRole)
}
