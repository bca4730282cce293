package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const demoPropertyName = "Riverside Residences"

// EnsureDemoProperty seeds one property with a handful of vacant units so a
// fresh install can exercise the application and lease flows immediately.
func EnsureDemoProperty(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		property, err := ensureDemoPropertyTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureDemoUnits(ctx, tx, node, property.ID)
	})
}

func ensureDemoPropertyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (unitdomain.Property, error) {
	var property unitdomain.Property
	err := tx.WithContext(ctx).Where("name = ?", demoPropertyName).First(&property).Error
	if err == nil {
		return property, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return property, err
	}
	now := time.Now().UTC()
	property = unitdomain.Property{
		ID:              node.Generate(),
		Name:            demoPropertyName,
		AssociationDues: decimal.RequireFromString("150.00"),
		LateFee:         decimal.RequireFromString("200.00"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(&property).Error; err != nil {
		return property, err
	}
	return property, nil
}

func ensureDemoUnits(ctx context.Context, db *gorm.DB, node *snowflake.Node, propertyID snowflake.ID) error {
	type unit struct {
		Number  string
		Rent    string
		Deposit string
		Advance string
	}

	units := []unit{
		{"1-A", "12000.00", "12000.00", "12000.00"},
		{"1-B", "12000.00", "12000.00", "12000.00"},
		{"2-A", "15000.00", "15000.00", "15000.00"},
		{"2-B", "15000.00", "15000.00", "15000.00"},
		{"PH-1", "28000.00", "28000.00", "28000.00"},
	}

	for _, u := range units {
		var existing unitdomain.Unit
		err := db.WithContext(ctx).
			Where("property_id = ? AND unit_number = ?", propertyID, u.Number).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		row := unitdomain.Unit{
			ID:                    node.Generate(),
			PropertyID:            propertyID,
			UnitNumber:            u.Number,
			Status:                unitdomain.UnitStatusUnoccupied,
			RentAmount:            decimal.RequireFromString(u.Rent),
			SecurityDepositAmount: decimal.RequireFromString(u.Deposit),
			AdvancePaymentAmount:  decimal.RequireFromString(u.Advance),
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}

	return nil
}
