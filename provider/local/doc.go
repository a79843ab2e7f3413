// Package local provides a self-hosted identity provider for go-auth.
//
// It verifies credentials against a local store, mints HS256 session tokens,
// and publishes lifecycle events in emission order, satisfying
// auth.IdentityClient without a hosted identity service.
package local
