package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, lease *LeaseAgreement) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LeaseAgreement, error)
	// FindByIDForUpdate locks the agreement row for the duration of the
	// surrounding transaction. The payment reconciler must use this before
	// touching the paid flags.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LeaseAgreement, error)
	FindLiveByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (*LeaseAgreement, error)
	FindLiveByUnitForUpdate(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (*LeaseAgreement, error)
	UpdateDocument(ctx context.Context, db *gorm.DB, id snowflake.ID, document string) error
	Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, start, end time.Time) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status LeaseStatus) error
	UpdatePaidFlags(ctx context.Context, db *gorm.DB, id snowflake.ID, securityDeposit, advancePayment bool) error
	// CountConfirmedPayments reports how many confirmed payment rows point at
	// the agreement. Deletion is refused while any exist: payments reference
	// the agreement row and settled money needs its audit trail.
	CountConfirmedPayments(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	UpdateUnitStatus(ctx context.Context, db *gorm.DB, unitID snowflake.ID, status unitdomain.UnitStatus) error
	SetApplicationSuperseded(ctx context.Context, db *gorm.DB, applicationID snowflake.ID, superseded bool) error
	// FindSourceApplicationID returns the approved application a lease for
	// this tenant+unit derived from, superseded or not.
	FindSourceApplicationID(ctx context.Context, db *gorm.DB, unitID, tenantID snowflake.ID) (snowflake.ID, error)
	RevertApplicationToPending(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) error
}
