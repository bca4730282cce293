// Package domain contains persistence models for lease agreements.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LeaseStatus represents lifecycle states for a lease agreement.
// Transitions are pending → active → terminated, never skipping and never
// reversing except through explicit deletion rollback.
type LeaseStatus string

const (
	LeaseStatusPending    LeaseStatus = "pending"
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

// LeaseAgreement binds an approved tenant to a unit. At most one agreement
// with status pending or active may exist per unit; the storage layer
// enforces this with a partial unique index.
type LeaseAgreement struct {
	ID                    snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID              snowflake.ID `json:"tenant_id" gorm:"not null;index"`
	UnitID                snowflake.ID `json:"unit_id" gorm:"not null"`
	Status                LeaseStatus  `json:"status" gorm:"type:text;not null"`
	StartDate             *time.Time   `json:"start_date"`
	EndDate               *time.Time   `json:"end_date"`
	IsSecurityDepositPaid bool         `json:"is_security_deposit_paid" gorm:"not null;default:false"`
	IsAdvancePaymentPaid  bool         `json:"is_advance_payment_paid" gorm:"not null;default:false"`
	AgreementDocument     string       `json:"agreement_document" gorm:"type:text"`
	CreatedAt             time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LeaseAgreement) TableName() string { return "lease_agreements" }
