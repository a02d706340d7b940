package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanAssignment binds an issued token (stored hashed) to a plan name.
// Tier definitions for the plan live in configuration, not here.
type PlanAssignment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TokenHash  string     `gorm:"uniqueIndex;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	Plan       string     `gorm:"not null" json:"plan"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func (a *PlanAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (PlanAssignment) TableName() string {
	return "plan_assignments"
}
