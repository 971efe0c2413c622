package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements UserStore and TokenStore in process memory.
// Used by tests and by single-node deployments without a database.
// Find-or-create is atomic under the store mutex, mirroring the unique
// constraint the postgres store relies on.
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	users      map[int64]*User
	byProvider map[string]int64
	byEmail    map[string]int64
	tokens     map[string]*DirectToken
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		users:      make(map[int64]*User),
		byProvider: make(map[string]int64),
		byEmail:    make(map[string]int64),
		tokens:     make(map[string]*DirectToken),
	}
}

func (m *MemoryStore) Create(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byProvider[user.ProviderID]; taken {
		return ErrProviderIDTaken
	}

	user.ID = m.nextID
	m.nextID++

	c := *user
	m.users[c.ID] = &c
	m.byProvider[c.ProviderID] = c.ID
	if c.Email != "" {
		m.byEmail[c.Email] = c.ID
	}
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *user
	return &c, nil
}

func (m *MemoryStore) GetByProviderID(ctx context.Context, providerID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byProvider[providerID]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *m.users[id]
	return &c, nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *m.users[id]
	return &c, nil
}

func (m *MemoryStore) Update(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if other, taken := m.byProvider[user.ProviderID]; taken && other != user.ID {
		return ErrProviderIDTaken
	}

	delete(m.byProvider, old.ProviderID)
	delete(m.byEmail, old.Email)

	c := *user
	m.users[c.ID] = &c
	m.byProvider[c.ProviderID] = c.ID
	if c.Email != "" {
		m.byEmail[c.Email] = c.ID
	}
	return nil
}

func (m *MemoryStore) Insert(ctx context.Context, token *DirectToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *token
	m.tokens[c.Token] = &c
	return nil
}

func (m *MemoryStore) GetUserID(ctx context.Context, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[token]
	if !ok {
		return 0, ErrTokenNotFound
	}
	if t.IsExpired() {
		delete(m.tokens, token)
		return 0, ErrTokenNotFound
	}
	if _, ok := m.users[t.UserID]; !ok {
		// Orphaned token: its user no longer exists.
		delete(m.tokens, token)
		return 0, ErrTokenNotFound
	}
	return t.UserID, nil
}

func (m *MemoryStore) Extend(ctx context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return ErrTokenNotFound
	}
	t.ExpiresAt = expiresAt
	return nil
}

func (m *MemoryStore) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *MemoryStore) DeleteByUserID(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for value, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, value)
		}
	}
	return nil
}
