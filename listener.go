package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// Listener converts identity provider lifecycle events into store updates,
// exactly once, in arrival order, discarding stale async results.
//
// Role resolution is the slow half of every sign-in: it runs on its own
// goroutine and may complete after a later event has already been handled.
// Every continuation therefore re-checks a monotonically increasing
// generation counter before writing, so a slow INITIAL_SESSION lookup can
// never resurrect a user that a later SIGNED_OUT already cleared.
type Listener struct {
	provider IdentityClient
	store    *Store
	resolver *RoleResolver
	notifier Notifier
	logger   Logger

	mu          sync.Mutex
	gen         uint64
	alive       bool
	unsubscribe func()
	cancel      context.CancelFunc
}

// ListenerOption customizes listener construction.
type ListenerOption func(*Listener)

// WithListenerNotifier sets the notification sink.
func WithListenerNotifier(n Notifier) ListenerOption {
	return func(l *Listener) {
		l.notifier = normalizeNotifier(n)
	}
}

// WithListenerLogger overrides the logger.
func WithListenerLogger(logger Logger) ListenerOption {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewListener returns a listener wiring the provider's event stream into the
// given store, resolving roles through resolver.
func NewListener(provider IdentityClient, store *Store, resolver *RoleResolver, opts ...ListenerOption) *Listener {
	l := &Listener{
		provider: provider,
		store:    store,
		resolver: resolver,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// Start hydrates the store from the provider's current session and then
// subscribes to the event stream. The returned stop function unsubscribes
// and flips the liveness flag; any still-running resolution becomes a no-op.
// Callers invoke Start once at application scope.
func (l *Listener) Start(ctx context.Context) (stop func(), err error) {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.alive {
		l.mu.Unlock()
		cancel()
		return nil, errors.New("auth listener already started", errors.CategoryConflict)
	}
	l.alive = true
	l.cancel = cancel
	l.mu.Unlock()

	session, err := l.provider.CurrentSession(ctx)
	if err != nil {
		l.logger.Error("initial session fetch failed", "error", err)
		l.store.Update(WithLoading(false), WithErr(WrapProviderErr(err, "could not hydrate session")))
	} else if session != nil {
		l.handle(ctx, Event{Kind: EventInitialSession, Session: session})
	} else {
		l.store.Update(WithUser(nil), WithSession(nil), WithLoading(false))
	}

	unsubscribe := l.provider.Subscribe(func(evt Event) {
		l.handle(ctx, evt)
	})

	l.mu.Lock()
	l.unsubscribe = unsubscribe
	l.mu.Unlock()

	return l.stop, nil
}

func (l *Listener) stop() {
	l.mu.Lock()
	if !l.alive {
		l.mu.Unlock()
		return
	}
	l.alive = false
	l.gen++
	unsubscribe := l.unsubscribe
	cancel := l.cancel
	l.unsubscribe = nil
	l.cancel = nil
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

// handle applies one provider event. Called from the provider's dispatch
// goroutine in emission order.
func (l *Listener) handle(ctx context.Context, evt Event) {
	l.mu.Lock()
	if !l.alive {
		l.mu.Unlock()
		return
	}
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	if evt.SignedOut() {
		l.logger.Debug("auth event", "kind", evt.Kind, "signed_in", false)
		l.apply(gen,
			WithUser(nil),
			WithSession(nil),
			WithRole(""),
			WithLoading(false),
			WithErr(nil),
		)
		l.notifier.Notify(Notification{
			Kind:    NotifySignedOut,
			Message: "You have been signed out.",
		})
		return
	}

	user := evt.Session.User
	l.logger.Debug("auth event", "kind", evt.Kind, "user_id", user.ID)

	l.apply(gen,
		WithUser(&user),
		WithSession(evt.Session),
		WithRole(""),
		WithLoading(true),
		WithErr(nil),
	)

	go l.resolveRole(ctx, gen, user)
}

// resolveRole runs the slow lookup and applies its outcome, unless a newer
// event superseded this one in the meantime.
func (l *Listener) resolveRole(ctx context.Context, gen uint64, user Principal) {
	role, err := l.resolver.Resolve(ctx, user)

	if err == nil {
		l.apply(gen, WithRole(role), WithLoading(false))
		return
	}

	if IsResolutionExhausted(err) {
		if !l.current(gen) {
			return
		}
		l.logger.Error("role resolution exhausted, forcing sign out", "user_id", user.ID, "error", err)
		l.apply(gen, WithRole(""), WithLoading(false), WithErr(err))
		l.notifier.Notify(Notification{
			Kind:    NotifyRoleResolutionFailed,
			Message: "Failed to get your account role. Please sign in again.",
		})
		// A roleless authenticated state never persists: every downstream
		// authorization check depends on role being present.
		if signOutErr := l.provider.SignOut(ctx); signOutErr != nil {
			l.logger.Error("forced sign out failed", "user_id", user.ID, "error", signOutErr)
			l.apply(gen,
				WithUser(nil),
				WithSession(nil),
				WithRole(""),
			)
		}
		return
	}

	if ctx.Err() != nil {
		return
	}

	l.logger.Error("role lookup failed", "user_id", user.ID, "error", err)
	l.apply(gen, WithRole(""), WithLoading(false), WithErr(err))
	l.notifier.Notify(Notification{
		Kind:    NotifyRoleResolutionFailed,
		Message: "Failed to fetch your account role. Please try again.",
	})
}

// apply writes to the store only while this generation is still current and
// the listener has not been torn down. The check and the write happen under
// the listener lock, so a superseding event can never interleave.
func (l *Listener) apply(gen uint64, changes ...StateChange) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.alive || gen != l.gen {
		return
	}

	l.store.Update(changes...)
}

func (l *Listener) current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive && gen == l.gen
}
