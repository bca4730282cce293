package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RoundingTolerance is the maximum drift allowed between the reported total
// and the sum of the item amounts.
var RoundingTolerance = decimal.NewFromFloat(0.01)

type Item struct {
	Type   PaymentType     `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type InitiateRequest struct {
	AgreementID string `json:"agreement_id"`
	Items       []Item `json:"items"`
	PayerName   string `json:"payer_name"`
	PayerEmail  string `json:"payer_email"`
}

// CheckoutDescriptor is handed back to the client to complete payment on
// the gateway's hosted page. No payment row exists yet at this point.
type CheckoutDescriptor struct {
	Reference   string          `json:"reference"`
	CheckoutURL string          `json:"checkout_url"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// ConfirmRequest arrives via the gateway's client-side redirect. The caller
// is untrusted input: every field is re-validated and the whole operation
// is idempotent per reference.
type ConfirmRequest struct {
	AgreementID string          `json:"agreement_id"`
	Reference   string          `json:"reference"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type ConfirmResult struct {
	PaymentID             string          `json:"payment_id,omitempty"`
	Reference             string          `json:"reference"`
	PaymentType           PaymentType     `json:"payment_type,omitempty"`
	AmountPaid            decimal.Decimal `json:"amount_paid"`
	IsSecurityDepositPaid bool            `json:"is_security_deposit_paid"`
	IsAdvancePaymentPaid  bool            `json:"is_advance_payment_paid"`
	// Duplicate marks a replayed callback answered from the original row.
	Duplicate bool `json:"duplicate"`
	// NoOp marks a confirmation whose obligations were already settled
	// through a different reference.
	NoOp bool `json:"no_op"`
}

type CancelRequest struct {
	AgreementID string `json:"agreement_id"`
	Reference   string `json:"reference"`
}

type Service interface {
	Initiate(ctx context.Context, req InitiateRequest) (*CheckoutDescriptor, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error)
	Cancel(ctx context.Context, req CancelRequest) error
	ListByAgreement(ctx context.Context, agreementID snowflake.ID) ([]Payment, error)
}

// CheckoutRequest is what the external gateway needs to host a checkout.
type CheckoutRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Description string
	PayerName   string
	PayerEmail  string
	SuccessURL  string
	FailureURL  string
	CancelURL   string
}

type Checkout struct {
	CheckoutURL string
	Reference   string
}

// Gateway creates hosted checkouts. Calls block on external I/O and must
// never run inside an open database transaction.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

var (
	ErrInvalidAgreement  = errors.New("invalid_agreement")
	ErrInvalidReference  = errors.New("invalid_reference")
	ErrInvalidItems      = errors.New("invalid_items")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrAmountMismatch    = errors.New("amount_mismatch")
	ErrAgreementNotFound = errors.New("agreement_not_found")
	ErrAlreadyConfirmed  = errors.New("already_confirmed")
	ErrGateway           = errors.New("gateway_unavailable")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
