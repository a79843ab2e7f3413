package auth

import (
	"context"
	"sync"
	"time"
)

// DefaultExpiryWarningWindow is how long before expiry the warning fires.
var DefaultExpiryWarningWindow = 5 * time.Minute

// TimerHandle is the cancellable half of time.AfterFunc, injectable so tests
// can drive a simulated clock.
type TimerHandle interface {
	Stop() bool
}

// TimerFactory schedules f after d and returns a cancel handle.
type TimerFactory func(d time.Duration, f func()) TimerHandle

func stdTimerFactory(d time.Duration, f func()) TimerHandle {
	return time.AfterFunc(d, f)
}

// TimeoutGuard schedules a warning and a hard sign-out relative to the
// session's expiry, rescheduling whenever the session identity changes. Both
// timers are cancelled on session replacement and on teardown so they never
// fire against a stale session.
type TimeoutGuard struct {
	signOut  func(ctx context.Context) error
	notifier Notifier
	logger   Logger
	window   time.Duration
	now      func() time.Time
	after    TimerFactory

	mu      sync.Mutex
	armed   *SessionObject
	warning TimerHandle
	expiry  TimerHandle
	stopped bool
}

// TimeoutGuardOption customizes guard construction.
type TimeoutGuardOption func(*TimeoutGuard)

// WithTimeoutWarningWindow overrides how far ahead of expiry the warning fires.
func WithTimeoutWarningWindow(d time.Duration) TimeoutGuardOption {
	return func(g *TimeoutGuard) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithTimeoutClock injects a custom clock (useful for tests).
func WithTimeoutClock(clock func() time.Time) TimeoutGuardOption {
	return func(g *TimeoutGuard) {
		if clock != nil {
			g.now = clock
		}
	}
}

// WithTimeoutTimerFactory injects the timer primitive (useful for tests).
func WithTimeoutTimerFactory(factory TimerFactory) TimeoutGuardOption {
	return func(g *TimeoutGuard) {
		if factory != nil {
			g.after = factory
		}
	}
}

// WithTimeoutNotifier sets the notification sink.
func WithTimeoutNotifier(n Notifier) TimeoutGuardOption {
	return func(g *TimeoutGuard) {
		g.notifier = normalizeNotifier(n)
	}
}

// WithTimeoutLogger overrides the logger.
func WithTimeoutLogger(logger Logger) TimeoutGuardOption {
	return func(g *TimeoutGuard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewTimeoutGuard returns a guard that invokes signOut when the watched
// session expires.
func NewTimeoutGuard(signOut func(ctx context.Context) error, opts ...TimeoutGuardOption) *TimeoutGuard {
	g := &TimeoutGuard{
		signOut:  signOut,
		notifier: noopNotifier{},
		logger:   defLogger{},
		window:   DefaultExpiryWarningWindow,
		now:      time.Now,
		after:    stdTimerFactory,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Start watches the store and reschedules on every session change. The
// returned stop function cancels both timers and the subscription.
func (g *TimeoutGuard) Start(store *Store) (stop func()) {
	unsubscribe := store.Subscribe(func(state AuthState) {
		g.Watch(state.Session)
	})

	g.Watch(store.State().Session)

	return func() {
		unsubscribe()
		g.Stop()
	}
}

// Watch arms the warning and expiry timers for session. A nil session
// cancels both without firing. Rescheduling only happens when the session
// identity actually changed (new sign-in, token refresh).
func (g *TimeoutGuard) Watch(session *SessionObject) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}

	if session.SameIdentity(g.armed) {
		return
	}

	g.cancelTimersLocked()
	g.armed = session

	if session == nil {
		return
	}

	now := g.now()
	// An already expired session still fires on the next tick; skipping it
	// would leave a dead session signed in.
	expiryDelay := clampDelay(session.ExpiresAt.Sub(now))
	warningDelay := clampDelay(session.ExpiresAt.Add(-g.window).Sub(now))

	token := session.AccessToken
	g.warning = g.after(warningDelay, func() { g.fireWarning(token) })
	g.expiry = g.after(expiryDelay, func() { g.fireExpiry(token) })

	g.logger.Debug("session timers armed",
		"user_id", session.User.ID,
		"warning_in", warningDelay,
		"expiry_in", expiryDelay,
	)
}

// Stop cancels both timers; the guard ignores further Watch calls.
func (g *TimeoutGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	g.cancelTimersLocked()
	g.armed = nil
}

func (g *TimeoutGuard) fireWarning(token string) {
	if !g.armedFor(token) {
		return
	}

	g.notifier.Notify(Notification{
		Kind:    NotifySessionExpiring,
		Message: "Your session will expire soon. Please save your work.",
	})
}

func (g *TimeoutGuard) fireExpiry(token string) {
	if !g.armedFor(token) {
		return
	}

	g.notifier.Notify(Notification{
		Kind:    NotifySessionExpired,
		Message: "Your session has expired. Please sign in again.",
	})

	if err := g.signOut(context.Background()); err != nil {
		g.logger.Error("expiry sign out failed", "error", err)
	}
}

// armedFor guards a fired timer against the session having been replaced
// between scheduling and firing.
func (g *TimeoutGuard) armedFor(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.stopped && g.armed != nil && g.armed.AccessToken == token
}

func (g *TimeoutGuard) cancelTimersLocked() {
	if g.warning != nil {
		g.warning.Stop()
		g.warning = nil
	}
	if g.expiry != nil {
		g.expiry.Stop()
		g.expiry = nil
	}
}

func clampDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
