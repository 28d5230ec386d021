package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/storage"
)

// UserStore manages registered users in memory.
type UserStore struct {
	mu      sync.RWMutex            // Read-write mutex for concurrent access to the maps
	users   map[string]*models.User // userID -> user
	byEmail map[string]string       // normalised email -> userID
}

// NewUserStore creates and returns an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

// CreateUser stores u. It returns storage.ErrDuplicate if the email is taken.
func (s *UserStore) CreateUser(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, ok := s.byEmail[key]; ok {
		return storage.ErrDuplicate
	}

	stored := u
	s.users[u.ID] = &stored
	s.byEmail[key] = u.ID
	return nil
}

// GetUserByEmail returns the user registered under email.
func (s *UserStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return *s.users[id], nil
}

// GetUser returns the user with the given id.
func (s *UserStore) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return *u, nil
}
