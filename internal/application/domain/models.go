// Package domain contains persistence models for prospective tenant
// applications.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ApplicationStatus represents intake states for a prospective tenant.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// ProspectiveTenant records a renter's interest in a unit. Once a lease
// agreement is created from it the row is superseded, never deleted, so the
// audit trail survives.
type ProspectiveTenant struct {
	ID               snowflake.ID      `json:"id" gorm:"primaryKey"`
	TenantID         snowflake.ID      `json:"tenant_id" gorm:"not null;index"`
	UnitID           snowflake.ID      `json:"unit_id" gorm:"not null;index"`
	Status           ApplicationStatus `json:"status" gorm:"type:text;not null"`
	IdentityDocument string            `json:"identity_document" gorm:"type:text"`
	IncomeDocument   string            `json:"income_document" gorm:"type:text"`
	Message          string            `json:"message" gorm:"type:text"`
	Superseded       bool              `json:"superseded" gorm:"not null;default:false"`
	CreatedAt        time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ProspectiveTenant) TableName() string { return "prospective_tenants" }
