package model

import (
	"time"

	"gorm.io/gorm"
)

// Roles recognized by the surrounding application.
const (
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RoleOperator   = "OPERATOR"
	RoleUser       = "USER"
	RoleGuest      = "GUEST"
)

// Account statuses.
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusSuspended = "SUSPENDED"
	StatusLocked    = "LOCKED"
)

// Credential stores a user's login record. Login bookkeeping fields
// (FailedAttempts, LockedUntil, LastLogin) are mutated only through the
// authentication manager; Version backs the optimistic concurrency check
// on those updates.
type Credential struct {
	ID             uint       `gorm:"primarykey"`
	Username       string     `gorm:"uniqueIndex;size:32;not null"`
	Email          string     `gorm:"uniqueIndex;size:256"`
	PasswordHash   string     `gorm:"size:256;not null"`
	Role           string     `gorm:"size:16;default:USER;not null"`
	Status         string     `gorm:"size:16;default:ACTIVE;not null"`
	FailedAttempts int        `gorm:"default:0;not null"`
	LockedUntil    *time.Time
	LastLogin      *time.Time
	Version        uint64     `gorm:"default:0;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == 0 {
		c.ID = GenerateID()
	}
	return nil
}
