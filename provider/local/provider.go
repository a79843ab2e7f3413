package local

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	auth "github.com/mercatohq/go-auth"
)

// DefaultSessionTTL is the token lifetime used when the config does not set
// one.
var DefaultSessionTTL = time.Hour

// DefaultEventBuffer is the size of the event queue feeding the dispatcher.
var DefaultEventBuffer = 16

// Credential is a locally stored identity with its password hash.
type Credential struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         auth.Role
	Metadata     map[string]any
}

// CredentialStore retrieves credentials by email.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*Credential, error)
}

// Config configures the local identity provider.
type Config struct {
	// SigningKey signs session tokens. Required.
	SigningKey []byte

	// Issuer is stamped into minted tokens.
	Issuer string

	// Audience is stamped into minted tokens.
	Audience jwt.ClaimStrings

	// SessionTTL is the lifetime of minted sessions.
	SessionTTL time.Duration

	// EventBuffer is the size of the dispatch queue.
	EventBuffer int
}

// Client is a self-hosted identity provider. It satisfies
// auth.IdentityClient: credential verification, session minting, and ordered
// lifecycle event delivery.
//
// Events are delivered from a single dispatcher goroutine, so subscribers
// observe them in emission order and emitters never run subscriber code on
// their own stack.
type Client struct {
	cfg    Config
	store  CredentialStore
	logger auth.Logger
	now    func() time.Time

	mu      sync.RWMutex
	session *auth.SessionObject
	subs    map[int]func(auth.Event)
	nextID  int

	events    chan auth.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures the Client.
type Option func(*Client)

// WithLogger overrides the default logger.
func WithLogger(l auth.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a local identity provider and starts its event dispatcher.
// Callers must Close the client when done with it.
func New(store CredentialStore, cfg Config, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("local provider requires a credential store", errors.CategoryBadInput)
	}

	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("local provider requires a signing key", errors.CategoryBadInput)
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}

	c := &Client{
		cfg:    cfg,
		store:  store,
		logger: auth.DefaultLogger(),
		now:    time.Now,
		subs:   map[int]func(auth.Event){},
		events: make(chan auth.Event, cfg.EventBuffer),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.dispatch()

	return c, nil
}

// CurrentSession returns the live session, or (nil, nil) when signed out.
func (c *Client) CurrentSession(_ context.Context) (*auth.SessionObject, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session, nil
}

// Subscribe registers a lifecycle event listener. The returned function
// removes it; calling it more than once is safe.
func (c *Client) Subscribe(fn func(auth.Event)) func() {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// SignInWithPassword verifies the credentials and, on success, installs a new
// session and emits a SIGNED_IN event.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	cred, err := c.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) || auth.IsRoleNotFound(err) {
			// never reveal whether the account exists
			return auth.ErrInvalidCredentials
		}
		return auth.WrapProviderErr(err, "failed to retrieve credential during sign in")
	}

	if err := auth.ComparePasswordAndHash(password, cred.PasswordHash); err != nil {
		return auth.ErrInvalidCredentials
	}

	session, err := c.mintSession(cred)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.logger.Debug("session minted for %s", cred.Email)

	c.emit(auth.Event{Kind: auth.EventSignedIn, Session: session})

	return nil
}

// RefreshSession re-mints the token for the current principal and emits a
// TOKEN_REFRESHED event. Returns an error when no session is live.
func (c *Client) RefreshSession(_ context.Context) error {
	c.mu.RLock()
	current := c.session
	c.mu.RUnlock()

	if current == nil {
		return errors.New("no session to refresh", errors.CategoryConflict).
			WithCode(errors.CodeConflict)
	}

	cred := &Credential{
		Email:    current.User.Email,
		Metadata: current.User.Metadata,
	}
	if id, err := uuid.Parse(current.User.ID); err == nil {
		cred.ID = id
	}
	if role, ok := current.User.Metadata["role"].(string); ok {
		cred.Role = role
	}

	session, err := c.mintSession(cred)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.emit(auth.Event{Kind: auth.EventTokenRefreshed, Session: session})

	return nil
}

// SignOut clears the session and emits a SIGNED_OUT event. Signing out while
// already signed out is a no-op that still emits, matching hosted providers.
func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	c.emit(auth.Event{Kind: auth.EventSignedOut})

	return nil
}

// Close stops the event dispatcher. Events emitted after Close are dropped.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) mintSession(cred *Credential) (*auth.SessionObject, error) {
	now := c.now()
	expiresAt := now.Add(c.cfg.SessionTTL)

	metadata := map[string]string{}
	for k, v := range cred.Metadata {
		if s, ok := v.(string); ok {
			metadata[k] = s
		}
	}

	claims := &auth.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.cfg.Issuer,
			Subject:   cred.ID.String(),
			Audience:  c.cfg.Audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    cred.Email,
		Role:     cred.Role,
		Metadata: metadata,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.cfg.SigningKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	principalMeta := map[string]any{}
	for k, v := range cred.Metadata {
		principalMeta[k] = v
	}
	if cred.Role != "" {
		principalMeta["role"] = cred.Role
	}

	return &auth.SessionObject{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		User: auth.Principal{
			ID:       cred.ID.String(),
			Email:    cred.Email,
			Metadata: principalMeta,
		},
	}, nil
}

func (c *Client) emit(ev auth.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Client) dispatch() {
	for {
		select {
		case ev := <-c.events:
			c.mu.RLock()
			fns := make([]func(auth.Event), 0, len(c.subs))
			for _, fn := range c.subs {
				fns = append(fns, fn)
			}
			c.mu.RUnlock()

			for _, fn := range fns {
				fn(ev)
			}
		case <-c.done:
			return
		}
	}
}
