package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"comptes/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// GetAll retrieves every user.
func (r *GORMUserRepository) GetAll() ([]models.User, error) {
	var users []models.User
	if err := r.db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetByID retrieves a user by their ID.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	return r.getBy("id = ?", id)
}

// GetByEmail retrieves a user by their email address.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getBy("email = ?", email)
}

// GetByVerificationToken retrieves the user holding a pending verification
// token. Consumed tokens are nulled out, so they never match again.
func (r *GORMUserRepository) GetByVerificationToken(token string) (*models.User, error) {
	return r.getBy("verification_token = ?", token)
}

func (r *GORMUserRepository) getBy(query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user (%s): %w", query, err)
	}
	return &user, nil
}

// CountByIDPrefix counts users whose ID starts with the given prefix.
func (r *GORMUserRepository) CountByIDPrefix(prefix string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("id LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users by id prefix %s: %w", prefix, err)
	}
	return count, nil
}

// CountByEmail counts users with exactly the given email.
func (r *GORMUserRepository) CountByEmail(email string) (int64, error) {
	return r.countBy("email = ?", email)
}

// CountByUsername counts users with exactly the given username.
func (r *GORMUserRepository) CountByUsername(username string) (int64, error) {
	return r.countBy("username = ?", username)
}

func (r *GORMUserRepository) countBy(query string, arg string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where(query, arg).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users (%s): %w", query, err)
	}
	return count, nil
}

// Create inserts a new user. Uniqueness violations on email or username are
// reported as ErrConflict so the service layer can map them to the right
// domain error.
func (r *GORMUserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if isDuplicateErr(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update persists changes to an existing user.
func (r *GORMUserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

// isDuplicateErr recognizes uniqueness violations across drivers. GORM
// translates them to ErrDuplicatedKey when the dialect supports it; the
// sqlite driver sometimes surfaces the raw constraint message instead.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
