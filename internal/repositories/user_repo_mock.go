package repositories

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"skillswap/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
// It enforces the same email-uniqueness invariant as the GORM version so
// tests exercise identical conflict behaviour without a database.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create stores a new user, rejecting duplicate emails atomically under
// the repository lock.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

// GetByEmail returns a user by email with the password hash cleared.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			sanitized := u.Sanitized()
			return &sanitized, nil
		}
	}
	return nil, ErrUserNotFound
}

// GetByEmailWithPassword returns a user by email including the hash.
func (r *MockUserRepository) GetByEmailWithPassword(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

// GetByID returns a user by ID with the password hash cleared.
func (r *MockUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	sanitized := u.Sanitized()
	return &sanitized, nil
}

// ListExcept returns up to limit users other than the given ID, newest
// first, password hashes cleared.
func (r *MockUserRepository) ListExcept(id string, limit int) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		if u.ID == id {
			continue
		}
		users = append(users, u.Sanitized())
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// Update replaces the stored record, preserving the existing password hash
// when the incoming record carries none. The backfill happens on a copy:
// like the GORM implementation, Update never writes the hash back into the
// caller's record.
func (r *MockUserRepository) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	stored := *user
	if stored.Password == "" {
		stored.Password = existing.Password
	}
	stored.UpdatedAt = time.Now()
	r.users[user.ID] = stored
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes a user by ID.
func (r *MockUserRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}
