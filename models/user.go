package models

import (
	"time"
)

// User is an account. Email and username are unique among verified accounts only,
// so the columns carry plain indexes and uniqueness is checked on write.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `gorm:"index" json:"-"`
	Email          string     `gorm:"size:255;not null;index" json:"email"`
	GoogleID       *string    `gorm:"size:255;index" json:"-"`
	HashedPassword []byte     `json:"-"` // nil for social-only accounts
	FullName       string     `gorm:"size:255" json:"fullName"`
	Username       string     `gorm:"size:64;index" json:"username"`
	Gender         string     `gorm:"size:32" json:"gender"`
	PhotoURL       string     `gorm:"size:512" json:"photoUrl"`
	Verified       bool       `gorm:"default:false;index" json:"verified"`
}
