package auth

// LoginPath is where unauthenticated visitors of protected routes are sent.
const LoginPath = "/login"

// authRoutes are the public credential-entry routes; an authenticated,
// resolved principal has no business staying on them.
var authRoutes = map[string]struct{}{
	"/login":          {},
	"/signup":         {},
	"/reset-password": {},
}

// IsAuthRoute reports whether path is one of the credential-entry routes.
func IsAuthRoute(path string) bool {
	_, ok := authRoutes[path]
	return ok
}

// RedirectDecision is a navigation target derived from the auth state and the
// current route. From carries the continuation: the route the visitor tried
// to reach, so sign-in can send them back.
type RedirectDecision struct {
	Target string
	From   string
}

// DecideRedirect maps (state, currentPath) to an optional navigation target.
// Pure; recomputed on every relevant change, never stored.
//
// Rules, in order:
//   - never redirect mid-resolution
//   - an authenticated, resolved principal on an auth route goes to their
//     role's dashboard
//   - an unauthenticated visitor outside the auth routes goes to /login with
//     the current path as continuation
func DecideRedirect(state AuthState, currentPath string) *RedirectDecision {
	if state.Loading {
		return nil
	}

	if IsAuthRoute(currentPath) {
		if state.Authenticated() && state.Role != "" {
			return &RedirectDecision{Target: DashboardPath(state.Role)}
		}
		return nil
	}

	if !state.Authenticated() {
		return &RedirectDecision{Target: LoginPath, From: currentPath}
	}

	return nil
}

// DecideRouteAccess extends DecideRedirect for role-gated routes: a signed-in
// principal whose role is not in allowed is sent to the storefront root,
// distinguishing "not signed in" from "signed in, wrong role".
func DecideRouteAccess(state AuthState, currentPath string, allowed []Role) *RedirectDecision {
	if state.Loading {
		return nil
	}

	if decision := DecideRedirect(state, currentPath); decision != nil {
		return decision
	}

	if state.Authenticated() && !RoleAllowed(state.Role, allowed) {
		return &RedirectDecision{Target: "/"}
	}

	return nil
}
