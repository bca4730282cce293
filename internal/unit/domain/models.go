// Package domain contains persistence models for properties and rental units.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// UnitStatus represents occupancy states for a unit.
type UnitStatus string

const (
	UnitStatusUnoccupied UnitStatus = "unoccupied"
	UnitStatusPending    UnitStatus = "pending"
	UnitStatusOccupied   UnitStatus = "occupied"
	UnitStatusInactive   UnitStatus = "inactive"
)

// Property groups units under one landlord-managed building.
type Property struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name            string          `json:"name" gorm:"type:text;not null"`
	AssociationDues decimal.Decimal `json:"association_dues" gorm:"type:decimal(18,2);not null"`
	LateFee         decimal.Decimal `json:"late_fee" gorm:"type:decimal(18,2);not null"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Property) TableName() string { return "properties" }

// Unit is a tenant-addressable rental space. Occupancy status is owned by the
// lease manager; no other component writes it directly.
type Unit struct {
	ID                    snowflake.ID    `json:"id" gorm:"primaryKey"`
	PropertyID            snowflake.ID    `json:"property_id" gorm:"not null;index"`
	UnitNumber            string          `json:"unit_number" gorm:"type:text;not null"`
	Status                UnitStatus      `json:"status" gorm:"type:text;not null"`
	RentAmount            decimal.Decimal `json:"rent_amount" gorm:"type:decimal(18,2);not null"`
	SecurityDepositAmount decimal.Decimal `json:"security_deposit_amount" gorm:"type:decimal(18,2);not null"`
	AdvancePaymentAmount  decimal.Decimal `json:"advance_payment_amount" gorm:"type:decimal(18,2);not null"`
	CreatedAt             time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Unit) TableName() string { return "units" }
