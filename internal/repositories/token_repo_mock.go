package repositories

import (
	"sync"
	"time"
)

// MockTokenRepository is an in-memory implementation of TokenRepository.
type MockTokenRepository struct {
	tokens map[string]time.Time
	mu     sync.RWMutex
}

// NewMockTokenRepository creates a new instance of MockTokenRepository.
func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{
		tokens: make(map[string]time.Time),
	}
}

// Revoke records a token until its natural expiry.
func (r *MockTokenRepository) Revoke(token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token] = expiresAt
	return nil
}

// IsRevoked reports whether the token has been revoked.
func (r *MockTokenRepository) IsRevoked(token string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tokens[token]
	return ok, nil
}

// PurgeExpired deletes revocation entries whose token has expired.
func (r *MockTokenRepository) PurgeExpired(now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for token, expiresAt := range r.tokens {
		if expiresAt.Before(now) {
			delete(r.tokens, token)
			purged++
		}
	}
	return purged, nil
}
