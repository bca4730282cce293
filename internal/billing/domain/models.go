// Package domain holds the monthly billing models: one Billing row per unit
// per calendar month, fed by the latest meter reading per utility.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type BillingStatus string

const (
	BillingStatusUnpaid  BillingStatus = "unpaid"
	BillingStatusPaid    BillingStatus = "paid"
	BillingStatusOverdue BillingStatus = "overdue"
)

type UtilityType string

const (
	UtilityWater       UtilityType = "water"
	UtilityElectricity UtilityType = "electricity"
)

// Billing is the monthly statement for a unit. BillingPeriod is normalized to
// the first day of the month; (unit_id, billing_period) is unique.
type Billing struct {
	ID                     snowflake.ID    `json:"id" gorm:"primaryKey"`
	UnitID                 snowflake.ID    `json:"unit_id" gorm:"not null"`
	BillingPeriod          time.Time       `json:"billing_period" gorm:"type:date;not null"`
	RentAmount             decimal.Decimal `json:"rent_amount" gorm:"type:decimal(18,2);not null"`
	TotalWaterAmount       decimal.Decimal `json:"total_water_amount" gorm:"type:decimal(18,2);not null"`
	TotalElectricityAmount decimal.Decimal `json:"total_electricity_amount" gorm:"type:decimal(18,2);not null"`
	AssociationDues        decimal.Decimal `json:"association_dues" gorm:"type:decimal(18,2);not null"`
	PenaltyAmount          decimal.Decimal `json:"penalty_amount" gorm:"type:decimal(18,2);not null"`
	DiscountAmount         decimal.Decimal `json:"discount_amount" gorm:"type:decimal(18,2);not null"`
	TotalAmountDue         decimal.Decimal `json:"total_amount_due" gorm:"type:decimal(18,2);not null"`
	Status                 BillingStatus   `json:"status" gorm:"type:text;not null"`
	DueDate                time.Time       `json:"due_date" gorm:"type:date;not null"`
	PaidAt                 *time.Time      `json:"paid_at"`
	CreatedAt              time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Billing) TableName() string { return "billings" }

// MeterReading is one utility meter snapshot for a unit. A billing cycle
// appends one row per utility; landlord corrections update the latest row in
// place rather than appending.
type MeterReading struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	UnitID          snowflake.ID    `json:"unit_id" gorm:"not null"`
	UtilityType     UtilityType     `json:"utility_type" gorm:"type:text;not null"`
	PreviousReading decimal.Decimal `json:"previous_reading" gorm:"type:decimal(18,2);not null"`
	CurrentReading  decimal.Decimal `json:"current_reading" gorm:"type:decimal(18,2);not null"`
	ReadingDate     time.Time       `json:"reading_date" gorm:"type:date;not null"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (MeterReading) TableName() string { return "meter_readings" }
