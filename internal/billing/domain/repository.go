package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, billing *Billing) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Billing, error)
	// FindByIDForUpdate locks the billing row so concurrent settlement and
	// correction cannot interleave.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Billing, error)
	FindByUnitAndPeriod(ctx context.Context, db *gorm.DB, unitID snowflake.ID, period time.Time) (*Billing, error)
	UpdateAmounts(ctx context.Context, db *gorm.DB, billing *Billing) error
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error
	// MarkOverdue flips an unpaid bill to overdue; paid bills are left alone.
	MarkOverdue(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindLatestReading(ctx context.Context, db *gorm.DB, unitID snowflake.ID, utility UtilityType) (*MeterReading, error)
	UpdateReadingValue(ctx context.Context, db *gorm.DB, id snowflake.ID, current decimal.Decimal) error

	FindUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (*unitdomain.Unit, error)
	FindProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) (*unitdomain.Property, error)
}
