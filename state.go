package auth

import "sync"

// AuthState is the aggregate auth snapshot every other component reads.
// Role is non empty only when User is non nil and Loading is false; Loading
// is true exactly while a session hydration or role resolution is in flight.
type AuthState struct {
	User    *Principal
	Session *SessionObject
	Role    Role
	Loading bool
	Err     error
}

// Authenticated reports whether a principal is signed in, resolved or not.
func (s AuthState) Authenticated() bool {
	return s.User != nil
}

// StateChange mutates a single field of the auth state during an update.
type StateChange func(*AuthState)

// WithUser sets the current principal.
func WithUser(u *Principal) StateChange {
	return func(s *AuthState) { s.User = u }
}

// WithSession replaces the session wholesale.
func WithSession(session *SessionObject) StateChange {
	return func(s *AuthState) { s.Session = session }
}

// WithRole sets the resolved role.
func WithRole(r Role) StateChange {
	return func(s *AuthState) { s.Role = r }
}

// WithLoading flags an in-flight hydration or resolution.
func WithLoading(loading bool) StateChange {
	return func(s *AuthState) { s.Loading = loading }
}

// WithErr records (or clears) the last failure.
func WithErr(err error) StateChange {
	return func(s *AuthState) { s.Err = err }
}

// Store holds the canonical auth state. The event listener is the sole
// writer of user/session/role in normal operation; credential actions only
// touch loading and err before delegating to the provider.
type Store struct {
	mu     sync.Mutex
	state  AuthState
	nextID int
	subs   map[int]func(AuthState)
}

// NewStore returns a store in the pre-hydration state: no user, loading until
// the listener observes the initial session.
func NewStore() *Store {
	return &Store{
		state: AuthState{Loading: true},
		subs:  map[int]func(AuthState){},
	}
}

// State returns the current snapshot.
func (s *Store) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update merges the given field changes and notifies subscribers once with
// the resulting snapshot. A call with no changes is a no-op.
func (s *Store) Update(changes ...StateChange) {
	if len(changes) == 0 {
		return
	}

	s.mu.Lock()
	for _, change := range changes {
		if change != nil {
			change(&s.state)
		}
	}
	snapshot := s.state
	listeners := make([]func(AuthState), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may read or update the
	// store without deadlocking.
	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Subscribe registers fn to run after every update. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(AuthState)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
