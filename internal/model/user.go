package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile enum constants for the four workflow roles
const (
	ProfileEmployee   = "EMPLOYEE"
	ProfileManager    = "MANAGER"
	ProfileAccounting = "ACCOUNTING"
	ProfileTreasury   = "TREASURY"
)

// User represents an authenticated principal. Supervisor is a back-reference
// into the same table; the service layer validates the chain forms a DAG.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Profile      string         `gorm:"type:varchar(20);not null;default:'EMPLOYEE'" json:"profile"`
	IsApprover   bool           `gorm:"default:false" json:"is_approver"`
	IsSuperuser  bool           `gorm:"default:false" json:"is_superuser"`
	SupervisorID *uuid.UUID     `gorm:"type:uuid;index" json:"supervisor_id"`
	Supervisor   *User          `gorm:"foreignKey:SupervisorID" json:"supervisor,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// ValidProfile reports whether p is one of the known workflow profiles.
func ValidProfile(p string) bool {
	switch p {
	case ProfileEmployee, ProfileManager, ProfileAccounting, ProfileTreasury:
		return true
	}
	return false
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
