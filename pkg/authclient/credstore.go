package authclient

import (
	"context"
	"sync"
)

// CredentialStore is the pluggable persistence for the caller's current
// credential pair and cached profile. Load returns (nil, nil) when nothing
// is stored; Clear on an empty store is a no-op.
type CredentialStore interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds *Credentials) error
	Clear(ctx context.Context) error
}

// MemoryStore is the default in-process CredentialStore. Safe for
// concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	creds *Credentials
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.creds == nil {
		return nil, nil
	}
	cp := *m.creds
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, creds *Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *creds
	m.creds = &cp
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = nil
	return nil
}
