package models

import "time"

// Permission carries the boolean role flags for one profile.
// A fresh account gets is_user=true and everything else false.
type Permission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ProfileID    uint      `gorm:"uniqueIndex;not null" json:"profile_id"`
	IsSuperadmin bool      `gorm:"not null;default:false" json:"is_superadmin"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	IsStaff      bool      `gorm:"not null;default:false" json:"is_staff"`
	IsUpdater    bool      `gorm:"not null;default:false" json:"is_updater"`
	IsReader     bool      `gorm:"not null;default:false" json:"is_reader"`
	IsUser       bool      `gorm:"not null;default:true" json:"is_user"`
}

// HasRole reports whether any elevated role flag is set.
func (p Permission) HasRole() bool {
	return p.IsSuperadmin || p.IsAdmin || p.IsStaff || p.IsUpdater || p.IsReader
}
