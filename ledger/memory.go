package ledger

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process Ledger.
type Memory struct {
	mu    sync.Mutex
	users map[string]User
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]User)}
}

var _ Ledger = (*Memory)(nil)

func (m *Memory) User(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUnknownUser
	}
	return u, nil
}

func (m *Memory) Users(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) Put(_ context.Context, u User) error {
	if err := u.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) Deduct(_ context.Context, id string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, ErrUnknownUser
	}
	charge, err := checkDeduct(u, n)
	if err != nil || !charge {
		return u.Credits, err
	}
	u.Credits -= n
	m.users[id] = u
	return u.Credits, nil
}

func (m *Memory) Grant(_ context.Context, id string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, ErrUnknownUser
	}
	u.Credits += n
	m.users[id] = u
	return u.Credits, nil
}

func (m *Memory) SetStatus(_ context.Context, id string, s Status) error {
	if !s.Valid() {
		return ErrInvalidStatus
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUnknownUser
	}
	u.Status = s
	m.users[id] = u
	return nil
}
