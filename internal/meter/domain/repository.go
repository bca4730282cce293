package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/leaseledger/leaseledger/internal/billing/domain"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reading *billingdomain.MeterReading) error
	FindLatest(ctx context.Context, db *gorm.DB, unitID snowflake.ID, utility billingdomain.UtilityType) (*billingdomain.MeterReading, error)
	ListByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]billingdomain.MeterReading, error)
	FindUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (*unitdomain.Unit, error)
}
