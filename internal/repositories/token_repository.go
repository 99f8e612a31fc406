package repositories

import "time"

// TokenRepository defines the interface for the session-token revocation set.
type TokenRepository interface {
	Revoke(token string, expiresAt time.Time) error
	IsRevoked(token string) (bool, error)
	PurgeExpired(now time.Time) (int64, error)
}
