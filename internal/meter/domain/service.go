// Package domain defines the meter reading intake: the producer of the
// meter_readings rows the billing cycle consumes.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/leaseledger/leaseledger/internal/billing/domain"
	"github.com/shopspring/decimal"
)

type Service interface {
	// Record appends a reading for one utility on a unit. The previous reading
	// is carried over from the latest stored row, so callers submit only the
	// current meter value.
	Record(ctx context.Context, req RecordRequest) (*billingdomain.MeterReading, error)
	List(ctx context.Context, unitID string) ([]billingdomain.MeterReading, error)
}

type RecordRequest struct {
	UnitID      string
	Utility     string
	Reading     decimal.Decimal
	ReadingDate *time.Time
}

var (
	ErrInvalidUnit       = errors.New("invalid_unit")
	ErrInvalidUtility    = errors.New("invalid_utility_type")
	ErrInvalidReading    = errors.New("invalid_reading")
	ErrUnitNotFound      = errors.New("unit_not_found")
	ErrReadingRegression = errors.New("reading_regression")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
