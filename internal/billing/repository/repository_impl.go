package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/leaseledger/leaseledger/internal/billing/domain"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	pkgdb "github.com/leaseledger/leaseledger/pkg/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const billingColumns = `id, unit_id, billing_period, rent_amount,
	total_water_amount, total_electricity_amount, association_dues,
	penalty_amount, discount_amount, total_amount_due, status, due_date,
	paid_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, billing *domain.Billing) error {
	return db.WithContext(ctx).Create(billing).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Billing, error) {
	return r.findOne(ctx, db, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Billing, error) {
	return r.findOne(ctx, pkgdb.ForUpdate(db), id)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Billing, error) {
	var item domain.Billing
	err := db.WithContext(ctx).
		Model(&domain.Billing{}).
		Where("id = ?", id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByUnitAndPeriod(ctx context.Context, db *gorm.DB, unitID snowflake.ID, period time.Time) (*domain.Billing, error) {
	var item domain.Billing
	err := db.WithContext(ctx).Raw(
		`SELECT `+billingColumns+`
		 FROM billings
		 WHERE unit_id = ? AND billing_period = ?
		 LIMIT 1`,
		unitID,
		period,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateAmounts(ctx context.Context, db *gorm.DB, billing *domain.Billing) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billings
		 SET total_water_amount = ?, total_electricity_amount = ?,
		     penalty_amount = ?, discount_amount = ?, total_amount_due = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		billing.TotalWaterAmount,
		billing.TotalElectricityAmount,
		billing.PenaltyAmount,
		billing.DiscountAmount,
		billing.TotalAmountDue,
		billing.ID,
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billings
		 SET status = ?, paid_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		domain.BillingStatusPaid,
		paidAt,
		id,
	).Error
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billings
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		domain.BillingStatusOverdue,
		id,
		domain.BillingStatusUnpaid,
	).Error
}

func (r *repo) FindLatestReading(ctx context.Context, db *gorm.DB, unitID snowflake.ID, utility domain.UtilityType) (*domain.MeterReading, error) {
	var item domain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT id, unit_id, utility_type, previous_reading, current_reading,
			reading_date, created_at
		 FROM meter_readings
		 WHERE unit_id = ? AND utility_type = ?
		 ORDER BY reading_date DESC, id DESC
		 LIMIT 1`,
		unitID,
		utility,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateReadingValue(ctx context.Context, db *gorm.DB, id snowflake.ID, current decimal.Decimal) error {
	return db.WithContext(ctx).Exec(
		`UPDATE meter_readings SET current_reading = ? WHERE id = ?`,
		current,
		id,
	).Error
}

func (r *repo) FindUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (*unitdomain.Unit, error) {
	var item unitdomain.Unit
	err := db.WithContext(ctx).
		Model(&unitdomain.Unit{}).
		Where("id = ?", unitID).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) (*unitdomain.Property, error) {
	var item unitdomain.Property
	err := db.WithContext(ctx).
		Model(&unitdomain.Property{}).
		Where("id = ?", propertyID).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
