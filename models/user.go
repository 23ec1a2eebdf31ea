package models

import (
	"time"
)

// User is the skater profile plus the stats view mutated at match conclusion.
// Credentials live here but are issued/verified by the auth service — this
// service never mints tokens.
type User struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Username       string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email          string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	HashedPassword string `gorm:"not null" json:"-"`

	// Skater identity
	Stance string `gorm:"type:varchar(16);not null;check:stance IN ('regular','goofy')" json:"stance"`

	// Stats — written only when a match concludes
	Wins          int `gorm:"not null;default:0" json:"wins"`
	Losses        int `gorm:"not null;default:0" json:"losses"`
	CurrentStreak int `gorm:"not null;default:0" json:"current_streak"`

	// Profile
	DisplayName string `gorm:"size:100" json:"display_name,omitempty"`
	Bio         string `gorm:"size:500" json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	IsActive   bool `gorm:"not null;default:true" json:"is_active"`
	IsVerified bool `gorm:"not null;default:false" json:"is_verified"`

	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	LastActive *time.Time `json:"last_active,omitempty"`
}
