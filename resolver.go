package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultMaxRoleAttempts bounds the role lookup retry loop.
var DefaultMaxRoleAttempts = 5

// DefaultRoleRetryInterval is the fixed wait between lookup attempts. The
// expected failure mode is "record not yet replicated", not "service
// overloaded", so the interval does not back off.
var DefaultRoleRetryInterval = time.Second

// RoleResolver determines the authorization role of a principal, creating a
// default role record when none exists yet.
type RoleResolver struct {
	store        RoleStore
	maxAttempts  int
	interval     time.Duration
	defaultRole  Role
	logger       Logger
	sleep        func(ctx context.Context, d time.Duration) error
	lastAttempts int
}

// ResolverOption customizes resolver construction.
type ResolverOption func(*RoleResolver)

// WithResolverAttempts overrides the retry bound.
func WithResolverAttempts(n int) ResolverOption {
	return func(r *RoleResolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithResolverInterval overrides the fixed wait between attempts.
func WithResolverInterval(d time.Duration) ResolverOption {
	return func(r *RoleResolver) {
		if d >= 0 {
			r.interval = d
		}
	}
}

// WithResolverDefaultRole overrides the role assigned to fresh records.
func WithResolverDefaultRole(role Role) ResolverOption {
	return func(r *RoleResolver) {
		if IsValidRole(role) {
			r.defaultRole = role
		}
	}
}

// WithResolverLogger overrides the logger.
func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *RoleResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverSleep injects the wait primitive (useful for tests).
func WithResolverSleep(sleep func(ctx context.Context, d time.Duration) error) ResolverOption {
	return func(r *RoleResolver) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewRoleResolver returns a resolver backed by the given store.
func NewRoleResolver(store RoleStore, opts ...ResolverOption) *RoleResolver {
	r := &RoleResolver{
		store:       store,
		maxAttempts: DefaultMaxRoleAttempts,
		interval:    DefaultRoleRetryInterval,
		defaultRole: RoleBuyer,
		logger:      defLogger{},
		sleep:       sleepCtx,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Resolve looks up the principal's role, lazily creating a default record on
// an explicit not-found, and retrying on a fixed interval up to the bound.
// It fails with ErrResolutionExhausted once the budget is spent; the caller
// reacts by forcing a sign-out.
//
// Attempt counting is per call, which the listener invokes once per sign-in
// lifecycle; a successful resolution resets nothing because nothing outlives
// the call.
func (r *RoleResolver) Resolve(ctx context.Context, principal Principal) (Role, error) {
	created := false
	defaultRole := r.defaultRole
	if hint := principal.RoleHint(); hint != "" {
		defaultRole = hint
	}

	var lastErr error
	attempts := 0

	for attempts < r.maxAttempts {
		attempts++
		r.lastAttempts = attempts

		role, err := r.store.GetRole(ctx, principal.ID)
		if err == nil {
			r.logger.Debug("role resolved", "user_id", principal.ID, "role", role, "attempt", attempts)
			return role, nil
		}

		lastErr = err

		if IsRoleNotFound(err) && !created {
			// The record may simply not have replicated after sign-up;
			// create it once, conflict-ignoring, then keep polling.
			if upsertErr := r.store.UpsertDefaultRole(ctx, principal.ID, principal.Email, defaultRole); upsertErr != nil {
				r.logger.Warn("default role record creation failed", "user_id", principal.ID, "error", upsertErr)
				lastErr = upsertErr
			}
			created = true
		} else if !IsRoleNotFound(err) {
			r.logger.Warn("role lookup failed", "user_id", principal.ID, "attempt", attempts, "error", err)
		}

		if attempts >= r.maxAttempts {
			break
		}

		if err := r.sleep(ctx, r.interval); err != nil {
			return "", errors.Wrap(err, errors.CategoryOperation, "role resolution cancelled")
		}
	}

	richErr := ErrResolutionExhausted.WithMetadata(map[string]any{
		"user_id":  principal.ID,
		"attempts": attempts,
	})
	if lastErr != nil {
		richErr = richErr.WithMetadata(map[string]any{
			"user_id":    principal.ID,
			"attempts":   attempts,
			"last_error": lastErr.Error(),
		})
	}

	return "", richErr
}

// LastAttempts reports how many lookup attempts the previous Resolve call
// made. Diagnostic only; not safe against concurrent Resolve calls.
func (r *RoleResolver) LastAttempts() int {
	return r.lastAttempts
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
