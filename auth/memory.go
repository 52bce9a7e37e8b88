package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryUsers is an in-memory UserStore for tests and local runs.
type MemoryUsers struct {
	mu     sync.RWMutex
	users  map[int64]User
	nextID int64
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[int64]User)}
}

func (m *MemoryUsers) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return User{}, ErrUserExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryUsers) UserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryUsers) UserByID(_ context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Deactivate flips IsActive off.
func (m *MemoryUsers) Deactivate(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.IsActive = false
		m.users[id] = u
	}
}

var _ UserStore = (*MemoryUsers)(nil)
