package models

import "time"

// RevokedToken is a session token invalidated by logout. Rows only need to
// live until the token would have expired on its own; the purge loop in main
// removes the rest.
type RevokedToken struct {
	Token     string    `json:"-" gorm:"primaryKey;type:varchar(512)"`
	ExpiresAt time.Time `json:"-" gorm:"index"`
}
