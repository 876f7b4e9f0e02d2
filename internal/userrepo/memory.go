package userrepo

import (
	"context"
	"sync"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Memory keeps users in process memory. Users do not survive a restart.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemory returns an empty user directory.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// Create stores the user and then returns it.
func (m *Memory) Create(_ context.Context, arg domain.CreateUserParams) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[arg.Username]; ok {
		return domain.User{}, domain.ErrUsernameAlreadyExists
	}

	if _, ok := m.byEmail[arg.Email]; ok {
		return domain.User{}, domain.ErrEmailAlreadyExists
	}

	u := domain.User{
		Username:       arg.Username,
		HashedPassword: arg.HashedPassword,
		FullName:       arg.FullName,
		Email:          arg.Email,
		CreatedAt:      m.now().UTC(),
	}

	m.users[u.Username] = u
	m.byEmail[u.Email] = u.Username

	return u, nil
}

// Get returns the user with the given username.
func (m *Memory) Get(_ context.Context, username string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	return u, nil
}
