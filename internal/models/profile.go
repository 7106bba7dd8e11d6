package models

import "time"

// Profile holds the editable account data attached one-to-one to a User.
// Deleting a profile deletes its owning user (see migration 0005), not the
// other way around; the repository mirrors that direction in DeleteProfile.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	// Email is profile-level and may diverge from the account email on users.
	Email        string `gorm:"size:255" json:"email,omitempty"`
	Verification bool   `gorm:"not null;default:false" json:"verification"`
	Nickname     string `gorm:"size:255" json:"nickname,omitempty"`
	FirstName    string `gorm:"size:255" json:"first_name,omitempty"`
	SecondName   string `gorm:"size:255" json:"second_name,omitempty"`
	Phone        string `gorm:"size:64" json:"phone,omitempty"`
	TgID         string `gorm:"size:64" json:"tg_id,omitempty"`
	TgNickname   string `gorm:"size:255" json:"tg_nickname,omitempty"`
	Session      string `gorm:"size:255" json:"-"`
	// Avatar is a path relative to the static root, e.g. "uploads/avatars/user_1_20251210143651.png".
	Avatar string `gorm:"size:255" json:"avatar,omitempty"`
	// Permission is the one-to-one child row (permissions.profile_id, ON DELETE CASCADE).
	Permission *Permission `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"permission,omitempty"`
}
