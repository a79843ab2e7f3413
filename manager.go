package auth

import (
	"context"
	"time"
)

// Manager is the composition root of the session core: it owns the store and
// wires the listener, resolver, timeout guard, and credential actions around
// it. UI collaborators consume the read-only snapshot, the action entry
// points, and the redirect query; they render nothing on the core's behalf.
type Manager struct {
	provider IdentityClient
	store    *Store
	resolver *RoleResolver
	listener *Listener
	guard    *TimeoutGuard
	actions  *Actions
	notifier Notifier
	logger   Logger
}

// ManagerOption customizes manager construction.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	logger        Logger
	notifier      Notifier
	clock         func() time.Time
	timerFactory  TimerFactory
	maxAttempts   int
	retryInterval time.Duration
	warningWindow time.Duration
	defaultRole   Role
	resolver      *RoleResolver
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger Logger) ManagerOption {
	return func(c *managerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNotifier sets the notification sink shared by every component.
func WithNotifier(n Notifier) ManagerOption {
	return func(c *managerConfig) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ManagerOption {
	return func(c *managerConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTimerFactory injects the timer primitive used by the timeout guard.
func WithTimerFactory(factory TimerFactory) ManagerOption {
	return func(c *managerConfig) {
		if factory != nil {
			c.timerFactory = factory
		}
	}
}

// WithRoleResolver replaces the default resolver wholesale.
func WithRoleResolver(r *RoleResolver) ManagerOption {
	return func(c *managerConfig) {
		if r != nil {
			c.resolver = r
		}
	}
}

// NewManager builds the session core around the provider and role store.
// Config may be nil, in which case package defaults apply.
func NewManager(provider IdentityClient, roles RoleStore, cfg Config, opts ...ManagerOption) *Manager {
	mc := &managerConfig{
		logger:        defLogger{},
		notifier:      noopNotifier{},
		clock:         time.Now,
		timerFactory:  stdTimerFactory,
		maxAttempts:   DefaultMaxRoleAttempts,
		retryInterval: DefaultRoleRetryInterval,
		warningWindow: DefaultExpiryWarningWindow,
		defaultRole:   RoleBuyer,
	}

	if cfg != nil {
		if v := cfg.GetMaxRoleAttempts(); v > 0 {
			mc.maxAttempts = v
		}
		if v := cfg.GetRoleRetryInterval(); v > 0 {
			mc.retryInterval = time.Duration(v) * time.Second
		}
		if v := cfg.GetExpiryWarningWindow(); v > 0 {
			mc.warningWindow = time.Duration(v) * time.Minute
		}
		if role, ok := ParseRole(cfg.GetDefaultRole()); ok {
			mc.defaultRole = role
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(mc)
		}
	}

	store := NewStore()

	resolver := mc.resolver
	if resolver == nil {
		resolver = NewRoleResolver(roles,
			WithResolverAttempts(mc.maxAttempts),
			WithResolverInterval(mc.retryInterval),
			WithResolverDefaultRole(mc.defaultRole),
			WithResolverLogger(mc.logger),
		)
	}

	actions := NewActions(provider, store,
		WithActionsNotifier(mc.notifier),
		WithActionsLogger(mc.logger),
	)

	listener := NewListener(provider, store, resolver,
		WithListenerNotifier(mc.notifier),
		WithListenerLogger(mc.logger),
	)

	guard := NewTimeoutGuard(actions.SignOut,
		WithTimeoutWarningWindow(mc.warningWindow),
		WithTimeoutClock(mc.clock),
		WithTimeoutTimerFactory(mc.timerFactory),
		WithTimeoutNotifier(mc.notifier),
		WithTimeoutLogger(mc.logger),
	)

	return &Manager{
		provider: provider,
		store:    store,
		resolver: resolver,
		listener: listener,
		guard:    guard,
		actions:  actions,
		notifier: normalizeNotifier(mc.notifier),
		logger:   mc.logger,
	}
}

// Start brings the listener and the timeout guard up. The returned stop
// function tears both down; call it once at shutdown.
func (m *Manager) Start(ctx context.Context) (stop func(), err error) {
	stopGuard := m.guard.Start(m.store)

	stopListener, err := m.listener.Start(ctx)
	if err != nil {
		stopGuard()
		return nil, err
	}

	return func() {
		stopListener()
		stopGuard()
	}, nil
}

// State returns the current auth snapshot.
func (m *Manager) State() AuthState {
	return m.store.State()
}

// Subscribe registers fn for every state change; route guards use this to
// gate rendering and navigation menus to show role-specific links.
func (m *Manager) Subscribe(fn func(AuthState)) func() {
	return m.store.Subscribe(fn)
}

// SignIn verifies credentials through the provider.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	return m.actions.SignIn(ctx, email, password)
}

// SignOut invalidates the current session.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.actions.SignOut(ctx)
}

// Decide computes the redirect decision for the current state and path,
// usable from a top-level route effect.
func (m *Manager) Decide(currentPath string) *RedirectDecision {
	return DecideRedirect(m.store.State(), currentPath)
}

// Store exposes the underlying session store for advanced consumers such as
// the HTTP route guard.
func (m *Manager) Store() *Store {
	return m.store
}
