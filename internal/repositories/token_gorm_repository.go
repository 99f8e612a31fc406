package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"comptes/internal/models"
)

// GORMTokenRepository is a GORM implementation of TokenRepository. Revoked
// tokens survive restarts, unlike a process-local blacklist.
type GORMTokenRepository struct {
	db *gorm.DB
}

// NewGORMTokenRepository creates a new instance of GORMTokenRepository.
func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{
		db: db,
	}
}

// Revoke records a token until its natural expiry. Revoking the same token
// twice is a no-op.
func (r *GORMTokenRepository) Revoke(token string, expiresAt time.Time) error {
	revoked := models.RevokedToken{Token: token, ExpiresAt: expiresAt}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&revoked).Error; err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token has been revoked.
func (r *GORMTokenRepository) IsRevoked(token string) (bool, error) {
	var revoked models.RevokedToken
	err := r.db.First(&revoked, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}

// PurgeExpired deletes revocation rows whose token has expired on its own.
func (r *GORMTokenRepository) PurgeExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
