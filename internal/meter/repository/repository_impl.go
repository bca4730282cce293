package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/leaseledger/leaseledger/internal/billing/domain"
	"github.com/leaseledger/leaseledger/internal/meter/domain"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	"gorm.io/gorm"
)

const readingColumns = `id, unit_id, utility_type, previous_reading,
	current_reading, reading_date, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reading *billingdomain.MeterReading) error {
	return db.WithContext(ctx).Create(reading).Error
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, unitID snowflake.ID, utility billingdomain.UtilityType) (*billingdomain.MeterReading, error) {
	var item billingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
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

func (r *repo) ListByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]billingdomain.MeterReading, error) {
	var items []billingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
		 FROM meter_readings
		 WHERE unit_id = ?
		 ORDER BY reading_date DESC, id DESC`,
		unitID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
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
