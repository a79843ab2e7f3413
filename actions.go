package auth

import (
	"context"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// CredentialPayload carries a sign-in request.
type CredentialPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (p CredentialPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(
			&p.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&p.Password,
			validation.Required,
		),
	)
}

// Actions orchestrates provider credential calls. It never writes the
// user/session/role fields on success: the provider emits a stream event and
// the listener, the single writer, processes it.
type Actions struct {
	provider IdentityClient
	store    *Store
	notifier Notifier
	logger   Logger
	inFlight atomic.Bool
}

// ActionsOption customizes construction.
type ActionsOption func(*Actions)

// WithActionsNotifier sets the notification sink.
func WithActionsNotifier(n Notifier) ActionsOption {
	return func(a *Actions) {
		a.notifier = normalizeNotifier(n)
	}
}

// WithActionsLogger overrides the logger.
func WithActionsLogger(logger Logger) ActionsOption {
	return func(a *Actions) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewActions returns the credential action entry points bound to the store.
func NewActions(provider IdentityClient, store *Store, opts ...ActionsOption) *Actions {
	a := &Actions{
		provider: provider,
		store:    store,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// SignIn verifies credentials through the provider. On failure the error is
// recorded and returned; user and role are left untouched since those only
// ever change via the listener. Concurrent calls are coalesced: a second
// attempt while one is pending fails fast instead of stacking provider calls
// and duplicate role resolutions.
func (a *Actions) SignIn(ctx context.Context, email, password string) error {
	payload := CredentialPayload{Email: email, Password: password}
	if err := payload.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid sign in payload").
			WithCode(errors.CodeBadRequest)
	}

	if !a.inFlight.CompareAndSwap(false, true) {
		return ErrSignInInFlight
	}
	defer a.inFlight.Store(false)

	a.store.Update(WithLoading(true), WithErr(nil))

	if err := a.provider.SignInWithPassword(ctx, email, password); err != nil {
		a.logger.Error("sign in failed", "email", email, "error", err)
		richErr := signInError(err)
		a.store.Update(WithLoading(false), WithErr(richErr))
		a.notifier.Notify(Notification{
			Kind:    NotifySignInFailed,
			Message: "Sign in failed. Check your credentials and try again.",
		})
		return richErr
	}

	// Success writes nothing here: the provider emits SIGNED_IN and the
	// listener performs the state transition, including clearing Loading
	// once the role resolves.
	a.logger.Info("sign in accepted", "email", email)
	return nil
}

// SignOut invalidates the session at the provider, then clears the local
// state defensively; the clear is idempotent with the SIGNED_OUT event that
// will also arrive.
func (a *Actions) SignOut(ctx context.Context) error {
	if err := a.provider.SignOut(ctx); err != nil {
		a.logger.Error("sign out failed", "error", err)
		richErr := WrapProviderErr(err, "could not sign out")
		a.store.Update(WithErr(richErr))
		a.notifier.Notify(Notification{
			Kind:    NotifySignOutFailed,
			Message: "Sign out failed. Please try again.",
		})
		return richErr
	}

	a.store.Update(
		WithUser(nil),
		WithSession(nil),
		WithRole(""),
		WithLoading(false),
	)

	return nil
}

func signInError(err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}

	return errors.Wrap(err, errors.CategoryAuth, "sign in rejected").
		WithCode(errors.CodeUnauthorized)
}
