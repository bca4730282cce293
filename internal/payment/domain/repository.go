package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertConfirmed inserts with ON CONFLICT DO NOTHING on the gateway
	// reference and reports whether this call won the insert.
	InsertConfirmed(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	FindConfirmedByReference(ctx context.Context, db *gorm.DB, reference string) (*Payment, error)
	ListByAgreement(ctx context.Context, db *gorm.DB, agreementID snowflake.ID) ([]Payment, error)
}
