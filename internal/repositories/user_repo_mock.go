package repositories

import (
	"strings"
	"sync"
	"time"

	"comptes/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
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

// GetAll returns all users.
func (r *MockUserRepository) GetAll() ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userList := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		userList = append(userList, u)
	}
	return userList, nil
}

// GetByID returns a user by their ID.
func (r *MockUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// GetByEmail returns the user with the given email.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

// GetByVerificationToken returns the user holding a pending token.
func (r *MockUserRepository) GetByVerificationToken(token string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

// CountByIDPrefix counts users whose ID starts with the given prefix.
func (r *MockUserRepository) CountByIDPrefix(prefix string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for id := range r.users {
		if strings.HasPrefix(id, prefix) {
			count++
		}
	}
	return count, nil
}

// CountByEmail counts users with exactly the given email.
func (r *MockUserRepository) CountByEmail(email string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, u := range r.users {
		if u.Email == email {
			count++
		}
	}
	return count, nil
}

// CountByUsername counts users with exactly the given username.
func (r *MockUserRepository) CountByUsername(username string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, u := range r.users {
		if u.Username == username {
			count++
		}
	}
	return count, nil
}

// Create adds a new user, enforcing the same uniqueness rules as the store.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return ErrConflict
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return ErrConflict
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

// Update modifies an existing user.
func (r *MockUserRepository) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}
