package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/leaseledger/leaseledger/internal/billing/domain"
	"github.com/leaseledger/leaseledger/internal/config"
	"github.com/leaseledger/leaseledger/internal/metrics"
	paymentdomain "github.com/leaseledger/leaseledger/internal/payment/domain"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	PaymentRepo paymentdomain.Repository
	Metrics     *metrics.Metrics `optional:"true"`
	Config      config.Config
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	paymentRepo paymentdomain.Repository
	metrics     *metrics.Metrics

	waterRate       decimal.Decimal
	electricityRate decimal.Decimal
	dueDay          int
}

func NewService(p Params) *Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("billing.service"),
		genID:           p.GenID,
		repo:            p.Repo,
		paymentRepo:     p.PaymentRepo,
		metrics:         p.Metrics,
		waterRate:       parseRate(p.Log, "WATER_RATE", p.Config.WaterRate),
		electricityRate: parseRate(p.Log, "ELECTRICITY_RATE", p.Config.ElectricityRate),
		dueDay:          p.Config.BillingDueDay,
	}
}

func parseRate(log *zap.Logger, name, value string) decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		log.Warn("invalid utility rate, charging zero",
			zap.String("name", name),
			zap.String("value", value),
		)
		return decimal.Zero
	}
	return rate
}

// GetOrCreateCurrentBill returns the unit's bill for the current month,
// deriving one from rent, association dues and the latest meter reading per
// utility when none exists yet. Two concurrent first calls race on the
// (unit_id, billing_period) unique index; the loser re-reads the winner's row.
func (s *Service) GetOrCreateCurrentBill(ctx context.Context, unitID snowflake.ID) (*domain.Billing, error) {
	if unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}
	period := periodStart(time.Now().UTC())

	existing, err := s.repo.FindByUnitAndPeriod(ctx, s.db, unitID, period)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var bill *domain.Billing
	err = s.db.Transaction(func(tx *gorm.DB) error {
		unit, err := s.repo.FindUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return domain.ErrUnitNotFound
		}
		property, err := s.repo.FindProperty(ctx, tx, unit.PropertyID)
		if err != nil {
			return err
		}

		dues := decimal.Zero
		if property != nil {
			dues = property.AssociationDues
		}
		water, err := s.utilityCharge(ctx, tx, unitID, domain.UtilityWater, s.waterRate)
		if err != nil {
			return err
		}
		electricity, err := s.utilityCharge(ctx, tx, unitID, domain.UtilityElectricity, s.electricityRate)
		if err != nil {
			return err
		}
		penalty, err := s.lateFee(ctx, tx, unitID, period, property)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		bill = &domain.Billing{
			ID:                     s.genID.Generate(),
			UnitID:                 unitID,
			BillingPeriod:          period,
			RentAmount:             unit.RentAmount,
			TotalWaterAmount:       water,
			TotalElectricityAmount: electricity,
			AssociationDues:        dues,
			PenaltyAmount:          penalty,
			DiscountAmount:         decimal.Zero,
			Status:                 domain.BillingStatusUnpaid,
			DueDate:                dueDate(period, s.dueDay),
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		bill.TotalAmountDue = totalDue(bill)
		return s.repo.Insert(ctx, tx, bill)
	})
	if err != nil {
		if dup, derr := s.repo.FindByUnitAndPeriod(ctx, s.db, unitID, period); derr == nil && dup != nil {
			return dup, nil
		}
		return nil, err
	}

	s.metrics.RecordBillGenerated()
	s.log.Info("bill generated",
		zap.String("unit_id", unitID.String()),
		zap.String("period", period.Format("2006-01")),
		zap.String("total_due", bill.TotalAmountDue.StringFixed(2)),
	)
	return bill, nil
}

// ApplyPayment settles a monthly bill against a confirmed gateway reference.
// Replayed references return the original outcome; settling an already-paid
// bill through a new reference is a conflict.
func (s *Service) ApplyPayment(ctx context.Context, req domain.ApplyPaymentRequest) (*domain.ApplyPaymentResult, error) {
	billingID, err := domain.ParseID(strings.TrimSpace(req.BillingID))
	if err != nil || billingID == 0 {
		return nil, domain.ErrInvalidBilling
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, paymentdomain.ErrInvalidReference
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var result *domain.ApplyPaymentResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.paymentRepo.FindConfirmedByReference(ctx, tx, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.BillingID == nil || *existing.BillingID != billingID {
				return paymentdomain.ErrInvalidReference
			}
			result = &domain.ApplyPaymentResult{
				PaymentID: existing.ID.String(),
				Reference: reference,
				Amount:    existing.AmountPaid,
				Status:    domain.BillingStatusPaid,
				Duplicate: true,
			}
			return nil
		}

		bill, err := s.repo.FindByIDForUpdate(ctx, tx, billingID)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrNotFound
		}
		if bill.Status == domain.BillingStatusPaid {
			return domain.ErrAlreadyPaid
		}
		if req.Amount.Sub(bill.TotalAmountDue).Abs().GreaterThan(paymentdomain.RoundingTolerance) {
			return domain.ErrAmountMismatch
		}

		now := time.Now().UTC()
		payment := paymentdomain.Payment{
			ID:               s.genID.Generate(),
			BillingID:        &billingID,
			PaymentType:      paymentdomain.PaymentTypeMonthlyBilling,
			AmountPaid:       req.Amount,
			Status:           paymentdomain.PaymentStatusConfirmed,
			GatewayReference: reference,
			Metadata: datatypes.JSONMap{
				"billing_period": bill.BillingPeriod.Format("2006-01-02"),
			},
			PaymentDate: now,
			CreatedAt:   now,
		}
		inserted, err := s.paymentRepo.InsertConfirmed(ctx, tx, &payment)
		if err != nil {
			return err
		}
		if !inserted {
			winner, err := s.paymentRepo.FindConfirmedByReference(ctx, tx, reference)
			if err != nil {
				return err
			}
			if winner == nil {
				return paymentdomain.ErrInvalidReference
			}
			result = &domain.ApplyPaymentResult{
				PaymentID: winner.ID.String(),
				Reference: reference,
				Amount:    winner.AmountPaid,
				Status:    domain.BillingStatusPaid,
				Duplicate: true,
			}
			return nil
		}

		if err := s.repo.MarkPaid(ctx, tx, bill.ID, now); err != nil {
			return err
		}
		result = &domain.ApplyPaymentResult{
			PaymentID: payment.ID.String(),
			Reference: reference,
			Amount:    payment.AmountPaid,
			Status:    domain.BillingStatusPaid,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		s.metrics.RecordDuplicateCallback()
	} else {
		s.metrics.RecordPaymentConfirmed(string(paymentdomain.PaymentTypeMonthlyBilling))
	}
	return result, nil
}

// UpdateReadingsAndAmounts applies a landlord correction: merge the supplied
// component amounts, recompute the total, and rewrite the latest meter
// reading per utility in place. Corrections never append reading rows.
func (s *Service) UpdateReadingsAndAmounts(ctx context.Context, req domain.CorrectionRequest) (*domain.Billing, error) {
	billingID, err := domain.ParseID(strings.TrimSpace(req.BillingID))
	if err != nil || billingID == 0 {
		return nil, domain.ErrInvalidBilling
	}

	var updated *domain.Billing
	err = s.db.Transaction(func(tx *gorm.DB) error {
		bill, err := s.repo.FindByIDForUpdate(ctx, tx, billingID)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrNotFound
		}

		if req.TotalWaterAmount != nil {
			bill.TotalWaterAmount = *req.TotalWaterAmount
		}
		if req.TotalElectricityAmount != nil {
			bill.TotalElectricityAmount = *req.TotalElectricityAmount
		}
		if req.PenaltyAmount != nil {
			bill.PenaltyAmount = *req.PenaltyAmount
		}
		if req.DiscountAmount != nil {
			bill.DiscountAmount = *req.DiscountAmount
		}
		bill.TotalAmountDue = totalDue(bill)

		if err := s.repo.UpdateAmounts(ctx, tx, bill); err != nil {
			return err
		}

		if req.WaterReading != nil {
			if err := s.correctReading(ctx, tx, bill.UnitID, domain.UtilityWater, *req.WaterReading); err != nil {
				return err
			}
		}
		if req.ElectricityReading != nil {
			if err := s.correctReading(ctx, tx, bill.UnitID, domain.UtilityElectricity, *req.ElectricityReading); err != nil {
				return err
			}
		}

		updated = bill
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bill corrected",
		zap.String("billing_id", billingID.String()),
		zap.String("total_due", updated.TotalAmountDue.StringFixed(2)),
	)
	return updated, nil
}

// lateFee charges the property's late fee on the new bill when the previous
// month's bill is still unpaid past its due date, flipping that bill to
// overdue in the same transaction.
func (s *Service) lateFee(ctx context.Context, tx *gorm.DB, unitID snowflake.ID, period time.Time, property *unitdomain.Property) (decimal.Decimal, error) {
	if property == nil || !property.LateFee.IsPositive() {
		return decimal.Zero, nil
	}
	previous, err := s.repo.FindByUnitAndPeriod(ctx, tx, unitID, period.AddDate(0, -1, 0))
	if err != nil {
		return decimal.Zero, err
	}
	if previous == nil || previous.Status != domain.BillingStatusUnpaid {
		return decimal.Zero, nil
	}
	if !time.Now().UTC().After(previous.DueDate) {
		return decimal.Zero, nil
	}
	if err := s.repo.MarkOverdue(ctx, tx, previous.ID); err != nil {
		return decimal.Zero, err
	}
	s.log.Info("late fee applied",
		zap.String("unit_id", unitID.String()),
		zap.String("overdue_period", previous.BillingPeriod.Format("2006-01")),
		zap.String("late_fee", property.LateFee.StringFixed(2)),
	)
	return property.LateFee, nil
}

func (s *Service) correctReading(ctx context.Context, tx *gorm.DB, unitID snowflake.ID, utility domain.UtilityType, current decimal.Decimal) error {
	latest, err := s.repo.FindLatestReading(ctx, tx, unitID, utility)
	if err != nil {
		return err
	}
	if latest == nil {
		// Nothing to correct; readings are appended by the meter intake,
		// not by landlord edits.
		return nil
	}
	return s.repo.UpdateReadingValue(ctx, tx, latest.ID, current)
}

func (s *Service) utilityCharge(ctx context.Context, tx *gorm.DB, unitID snowflake.ID, utility domain.UtilityType, rate decimal.Decimal) (decimal.Decimal, error) {
	reading, err := s.repo.FindLatestReading(ctx, tx, unitID, utility)
	if err != nil {
		return decimal.Zero, err
	}
	if reading == nil {
		return decimal.Zero, nil
	}
	consumption := reading.CurrentReading.Sub(reading.PreviousReading)
	if consumption.IsNegative() {
		consumption = decimal.Zero
	}
	return consumption.Mul(rate).Round(2), nil
}

func totalDue(bill *domain.Billing) decimal.Decimal {
	return bill.RentAmount.
		Add(bill.TotalWaterAmount).
		Add(bill.TotalElectricityAmount).
		Add(bill.AssociationDues).
		Add(bill.PenaltyAmount).
		Sub(bill.DiscountAmount).
		Round(2)
}

func periodStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func dueDate(period time.Time, day int) time.Time {
	if day < 1 || day > 28 {
		day = 10
	}
	return time.Date(period.Year(), period.Month(), day, 0, 0, 0, 0, time.UTC)
}
