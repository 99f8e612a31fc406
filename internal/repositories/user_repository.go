package repositories

import (
	"errors"

	"comptes/internal/models"
)

// ErrNotFound is returned by lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned by writes that violate a uniqueness constraint.
var ErrConflict = errors.New("uniqueness conflict")

// UserRepository defines the interface for user data access.
type UserRepository interface {
	GetAll() ([]models.User, error)
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByVerificationToken(token string) (*models.User, error)
	CountByIDPrefix(prefix string) (int64, error)
	CountByEmail(email string) (int64, error)
	CountByUsername(username string) (int64, error)
	Create(user *models.User) error
	Update(user *models.User) error
}
