package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents one account. The ID is a short human-readable string
// derived from the holder's name at registration time and never changes
// afterwards.
type User struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(16)"`
	Firstname string `json:"firstname" gorm:"type:varchar(100)" validate:"required"`
	Lastname  string `json:"lastname" gorm:"type:varchar(100)" validate:"required"`
	Username  string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email     string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string `json:"-" gorm:"type:varchar(255)"` // bcrypt hash, never the plaintext

	// Verified stays false until the verification link is followed.
	// VerificationToken is non-nil exactly while verification is pending and
	// is cleared the moment it is consumed, so a token can never be replayed.
	Verified           bool       `json:"verified"`
	VerificationToken  *string    `json:"-" gorm:"uniqueIndex;type:varchar(36)"`
	VerificationSentAt *time.Time `json:"-"`

	gorm.Model // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
