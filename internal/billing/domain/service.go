package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CorrectionRequest carries the landlord-editable components of a bill. Nil
// fields are left untouched; the total is recomputed from the merged result.
// Reading values update the latest meter reading row for the unit in place.
type CorrectionRequest struct {
	BillingID string

	TotalWaterAmount       *decimal.Decimal
	TotalElectricityAmount *decimal.Decimal
	PenaltyAmount          *decimal.Decimal
	DiscountAmount         *decimal.Decimal

	WaterReading       *decimal.Decimal
	ElectricityReading *decimal.Decimal
}

// ApplyPaymentRequest settles a monthly bill from a confirmed gateway
// checkout. The reference is subject to the same uniqueness rule as every
// other payment.
type ApplyPaymentRequest struct {
	BillingID string
	Reference string
	Amount    decimal.Decimal
}

type ApplyPaymentResult struct {
	PaymentID string          `json:"payment_id,omitempty"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Status    BillingStatus   `json:"status"`
	Duplicate bool            `json:"duplicate"`
}

type Service interface {
	GetOrCreateCurrentBill(ctx context.Context, unitID snowflake.ID) (*Billing, error)
	ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*ApplyPaymentResult, error)
	UpdateReadingsAndAmounts(ctx context.Context, req CorrectionRequest) (*Billing, error)
}

var (
	ErrInvalidUnit    = errors.New("invalid_unit")
	ErrInvalidBilling = errors.New("invalid_billing")
	ErrInvalidAmount  = errors.New("invalid_billing_amount")
	ErrUnitNotFound   = errors.New("unit_not_found")
	ErrNotFound       = errors.New("billing_not_found")
	ErrAmountMismatch = errors.New("billing_amount_mismatch")
	ErrAlreadyPaid    = errors.New("billing_already_paid")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
