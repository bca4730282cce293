package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubmitRequest struct {
	TenantID            string `json:"tenant_id"`
	UnitID              string `json:"unit_id"`
	IdentityDocumentURL string `json:"identity_document_url"`
	IncomeDocumentURL   string `json:"income_document_url"`
	Message             string `json:"message"`
}

type ApproveRequest struct {
	UnitID   string `json:"unit_id"`
	TenantID string `json:"tenant_id"`
}

type Response struct {
	ID               string            `json:"id"`
	TenantID         string            `json:"tenant_id"`
	UnitID           string            `json:"unit_id"`
	Status           ApplicationStatus `json:"status"`
	IdentityDocument string            `json:"identity_document,omitempty"`
	IncomeDocument   string            `json:"income_document,omitempty"`
	Message          string            `json:"message,omitempty"`
	Superseded       bool              `json:"superseded"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ApprovedTenant is what the lease manager needs before any lease agreement
// exists for a unit: the tenant identity plus the submitted document refs.
type ApprovedTenant struct {
	ApplicationID    snowflake.ID
	TenantID         snowflake.ID
	IdentityDocument string
	IncomeDocument   string
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Response, error)
	Approve(ctx context.Context, req ApproveRequest) (*Response, error)
	GetApprovedTenant(ctx context.Context, unitID snowflake.ID) (*ApprovedTenant, error)
	ListByUnit(ctx context.Context, unitID snowflake.ID) ([]Response, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidUnit   = errors.New("invalid_unit")
	ErrNotFound      = errors.New("application_not_found")
	ErrNoApproved    = errors.New("no_approved_application")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
