// Package domain contains the payment records reconciled against gateway
// callbacks, and the gateway client contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentType is the tagged settlement variant. Combined deposit+advance
// settlements get their own tag instead of two ad-hoc rows.
type PaymentType string

const (
	PaymentTypeSecurityDeposit PaymentType = "security_deposit"
	PaymentTypeAdvanceRent     PaymentType = "advance_rent"
	PaymentTypeSecAndAdv       PaymentType = "sec_and_adv"
	PaymentTypeMonthlyBilling  PaymentType = "monthly_billing"
)

// PaymentStatus represents settlement states for a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is written at confirmation time, never at initiation: an
// abandoned checkout leaves no row behind. The gateway reference is unique
// at the storage layer; that constraint is what linearizes duplicate
// callbacks.
type Payment struct {
	ID               snowflake.ID      `json:"id" gorm:"primaryKey"`
	AgreementID      *snowflake.ID     `json:"agreement_id" gorm:"index"`
	BillingID        *snowflake.ID     `json:"billing_id"`
	PaymentType      PaymentType       `json:"payment_type" gorm:"type:text;not null"`
	AmountPaid       decimal.Decimal   `json:"amount_paid" gorm:"type:decimal(18,2);not null"`
	Status           PaymentStatus     `json:"status" gorm:"type:text;not null"`
	GatewayReference string            `json:"gateway_reference" gorm:"type:text;not null;uniqueIndex"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb;not null;default:'{}'"`
	PaymentDate      time.Time         `json:"payment_date" gorm:"not null"`
	CreatedAt        time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }
