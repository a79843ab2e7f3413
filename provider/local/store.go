package local

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	auth "github.com/mercatohq/go-auth"
)

// MemoryStore is an in-memory CredentialStore. Intended for tests and for
// bootstrapping environments before a database-backed store is wired in.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]*Credential
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: map[string]*Credential{},
	}
}

// Register hashes the password and stores a credential for the email,
// replacing any existing one.
func (s *MemoryStore) Register(email, password string, role auth.Role) (*Credential, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	s.mu.Lock()
	s.creds[normalizeEmail(email)] = cred
	s.mu.Unlock()

	return cred, nil
}

// GetByEmail satisfies the CredentialStore interface.
func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*Credential, error) {
	s.mu.RLock()
	cred, ok := s.creds[normalizeEmail(email)]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.New("credential not found", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound)
	}

	return cred, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
