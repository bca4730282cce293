package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/leaseledger/leaseledger/internal/billing/domain"
	"github.com/leaseledger/leaseledger/internal/meter/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("meter.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*billingdomain.MeterReading, error) {
	unitID, err := domain.ParseID(strings.TrimSpace(req.UnitID))
	if err != nil {
		return nil, domain.ErrInvalidUnit
	}

	utility, err := parseUtility(req.Utility)
	if err != nil {
		return nil, err
	}

	if req.Reading.IsNegative() {
		return nil, domain.ErrInvalidReading
	}

	readingDate := time.Now().UTC()
	if req.ReadingDate != nil {
		readingDate = req.ReadingDate.UTC()
	}

	var reading *billingdomain.MeterReading
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := s.repo.FindUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return domain.ErrUnitNotFound
		}

		previous, err := s.repo.FindLatest(ctx, tx, unitID, utility)
		if err != nil {
			return err
		}

		row := billingdomain.MeterReading{
			ID:          s.genID.Generate(),
			UnitID:      unitID,
			UtilityType: utility,
			ReadingDate: readingDate,
			CreatedAt:   time.Now().UTC(),
		}
		row.CurrentReading = req.Reading
		if previous != nil {
			if req.Reading.LessThan(previous.CurrentReading) {
				return domain.ErrReadingRegression
			}
			row.PreviousReading = previous.CurrentReading
		}

		if err := s.repo.Insert(ctx, tx, &row); err != nil {
			return err
		}
		reading = &row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("meter reading recorded",
		zap.String("unit_id", unitID.String()),
		zap.String("utility_type", string(utility)),
		zap.String("current_reading", reading.CurrentReading.String()),
	)

	return reading, nil
}

func (s *Service) List(ctx context.Context, rawUnitID string) ([]billingdomain.MeterReading, error) {
	unitID, err := domain.ParseID(strings.TrimSpace(rawUnitID))
	if err != nil {
		return nil, domain.ErrInvalidUnit
	}

	unit, err := s.repo.FindUnit(ctx, s.db, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrUnitNotFound
	}

	return s.repo.ListByUnit(ctx, s.db, unitID)
}

func parseUtility(raw string) (billingdomain.UtilityType, error) {
	switch billingdomain.UtilityType(strings.ToLower(strings.TrimSpace(raw))) {
	case billingdomain.UtilityWater:
		return billingdomain.UtilityWater, nil
	case billingdomain.UtilityElectricity:
		return billingdomain.UtilityElectricity, nil
	default:
		return "", domain.ErrInvalidUtility
	}
}
