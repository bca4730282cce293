package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SetDatesRequest struct {
	UnitID    string `json:"unit_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type AttachDocumentRequest struct {
	UnitID   string
	FileName string
	Data     []byte
}

type Response struct {
	ID                    string      `json:"id"`
	TenantID              string      `json:"tenant_id"`
	UnitID                string      `json:"unit_id"`
	Status                LeaseStatus `json:"status"`
	StartDate             *time.Time  `json:"start_date,omitempty"`
	EndDate               *time.Time  `json:"end_date,omitempty"`
	IsSecurityDepositPaid bool        `json:"is_security_deposit_paid"`
	IsAdvancePaymentPaid  bool        `json:"is_advance_payment_paid"`
	HasDocument           bool        `json:"has_document"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// ResolvedTenant is the single source of tenant identity for a unit: the
// live lease when one exists, otherwise the approved application.
type ResolvedTenant struct {
	TenantID      snowflake.ID
	Lease         *LeaseAgreement
	ApplicationID snowflake.ID
}

type Service interface {
	Create(ctx context.Context, unitID snowflake.ID) (*Response, error)
	AttachDocument(ctx context.Context, req AttachDocumentRequest) (*Response, error)
	SetDates(ctx context.Context, req SetDatesRequest) (*Response, error)
	Delete(ctx context.Context, unitID snowflake.ID) error
	Terminate(ctx context.Context, unitID snowflake.ID) (*Response, error)
	GetByUnit(ctx context.Context, unitID snowflake.ID) (*Response, error)
	ResolveTenantForUnit(ctx context.Context, unitID snowflake.ID) (*ResolvedTenant, error)
}

var (
	ErrInvalidUnit      = errors.New("invalid_unit")
	ErrInvalidDocument  = errors.New("invalid_document")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrLeaseExists      = errors.New("lease_exists")
	ErrNotFound         = errors.New("lease_not_found")
	ErrNotActive        = errors.New("lease_not_active")
	ErrSettled          = errors.New("lease_settled")
	ErrDocumentStore    = errors.New("document_store_unavailable")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
