package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                     string     `gorm:"primaryKey;size:36"       json:"id"`
	Username               string     `gorm:"uniqueIndex;not null"     json:"username"`
	Email                  string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash           string     `gorm:"not null"                 json:"-"`
	FirstName              string     `json:"first_name"`
	LastName               string     `json:"last_name"`
	DOB                    *time.Time `json:"dob,omitempty"`
	IsVerified             bool       `gorm:"not null;default:false"   json:"is_verified"`
	VerificationCode       *string    `json:"-"`
	VerificationCodeExpiry *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	Roles                  []Role     `gorm:"many2many:user_roles"     json:"roles"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Role struct {
	Name        string       `gorm:"primaryKey"                json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions"`
}

type Permission struct {
	Name        string `gorm:"primaryKey" json:"name"`
	Description string `json:"description"`
}

// InvalidatedToken is a revoked token id. Presence of the row is what makes a
// token invalid; ExpiryTime only allows an external job to garbage-collect
// rows whose tokens could no longer verify anyway.
type InvalidatedToken struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ExpiryTime time.Time `gorm:"not null"           json:"expiry_time"`
}

// PasswordHistory is an append-only ledger of superseded password digests.
// Rows are never updated or deleted here; retention is an external policy.
type PasswordHistory struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"index;not null"     json:"user_id"`
	PasswordHash string    `gorm:"not null"           json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *PasswordHistory) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
