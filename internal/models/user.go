package models

import "time"

// User is the identity record. It is created on registration and removed
// only as a side effect of its Profile being deleted: the profiles table
// carries an AFTER DELETE trigger that removes the owning user row.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	// Username became nullable in migration 0002; nil means not chosen yet.
	Username *string `gorm:"size:64" json:"username,omitempty"`
	// ActivationKey was widened from 64 to 255 chars in migration 0003.
	ActivationKey *string `gorm:"size:255" json:"-"`
	IsActive      bool    `gorm:"not null;default:true" json:"is_active"`
	// Profile is the one-to-one child row (profiles.user_id, ON DELETE CASCADE).
	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}
