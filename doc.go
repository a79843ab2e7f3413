// Package auth implements the identity and session lifecycle core for a
// marketplace storefront.
//
// Session state:
//   - Store is the single source of truth for the authenticated principal,
//     its session, and its resolved role. All writes flow through the
//     Listener so subscribers observe one coherent stream of states.
//   - Listener consumes identity provider lifecycle events (initial session,
//     sign in, token refresh, sign out) and resolves the principal's role in
//     the background. A generation guard discards results from superseded
//     events, so a sign-out can never be overwritten by a slow role lookup.
//
// Role resolution:
//   - RoleResolver retries role lookups with a bounded budget to absorb
//     replication lag between the identity provider and the role store, and
//     creates a default role record exactly once when none exists. When the
//     budget is spent the session is forcibly terminated rather than left
//     roleless.
//
// Navigation:
//   - DecideRedirect and DecideRouteAccess are pure functions from auth state
//     to redirect decisions. RouteGuard applies the same decisions as HTTP
//     middleware, and TimeoutGuard schedules expiry warnings and forced
//     sign-outs from the session's own expiry timestamp.
//
// Manager wires all of the above together behind a start/stop lifecycle.
package auth
