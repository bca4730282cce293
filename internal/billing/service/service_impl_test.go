package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/leaseledger/leaseledger/internal/billing/domain"
	billingrepo "github.com/leaseledger/leaseledger/internal/billing/repository"
	billingservice "github.com/leaseledger/leaseledger/internal/billing/service"
	"github.com/leaseledger/leaseledger/internal/config"
	paymentdomain "github.com/leaseledger/leaseledger/internal/payment/domain"
	paymentrepo "github.com/leaseledger/leaseledger/internal/payment/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_bill_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE properties (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			association_dues NUMERIC NOT NULL DEFAULT 0,
			late_fee NUMERIC NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE units (
			id BIGINT PRIMARY KEY,
			property_id BIGINT NOT NULL,
			unit_number TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'unoccupied',
			rent_amount NUMERIC NOT NULL DEFAULT 0,
			security_deposit_amount NUMERIC NOT NULL DEFAULT 0,
			advance_payment_amount NUMERIC NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE billings (
			id BIGINT PRIMARY KEY,
			unit_id BIGINT NOT NULL,
			billing_period DATE NOT NULL,
			rent_amount NUMERIC NOT NULL DEFAULT 0,
			total_water_amount NUMERIC NOT NULL DEFAULT 0,
			total_electricity_amount NUMERIC NOT NULL DEFAULT 0,
			association_dues NUMERIC NOT NULL DEFAULT 0,
			penalty_amount NUMERIC NOT NULL DEFAULT 0,
			discount_amount NUMERIC NOT NULL DEFAULT 0,
			total_amount_due NUMERIC NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'unpaid',
			due_date DATE NOT NULL,
			paid_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_billings_unit_period ON billings(unit_id, billing_period)`,
		`CREATE TABLE meter_readings (
			id BIGINT PRIMARY KEY,
			unit_id BIGINT NOT NULL,
			utility_type TEXT NOT NULL,
			previous_reading NUMERIC NOT NULL DEFAULT 0,
			current_reading NUMERIC NOT NULL DEFAULT 0,
			reading_date DATE NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			agreement_id BIGINT,
			billing_id BIGINT,
			payment_type TEXT NOT NULL,
			amount_paid NUMERIC NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			gateway_reference TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			payment_date DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payments_gateway_reference ON payments(gateway_reference)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  *billingservice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(14)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	svc := billingservice.NewService(billingservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        billingrepo.Provide(),
		PaymentRepo: paymentrepo.Provide(),
		Config: config.Config{
			WaterRate:       "10.00",
			ElectricityRate: "2.00",
			BillingDueDay:   10,
		},
	})
	return &fixture{db: db, node: node, svc: svc}
}

func (f *fixture) seedUnit(t *testing.T, rent, dues string) snowflake.ID {
	t.Helper()

	propertyID := f.node.Generate()
	unitID := f.node.Generate()
	now := time.Now().UTC()
	if err := f.db.Exec(
		`INSERT INTO properties (id, name, association_dues, late_fee, created_at, updated_at)
		 VALUES (?, 'Hillcrest Tower', ?, 100, ?, ?)`,
		propertyID, dues, now, now,
	).Error; err != nil {
		t.Fatalf("seed property: %v", err)
	}
	if err := f.db.Exec(
		`INSERT INTO units (id, property_id, unit_number, status, rent_amount,
			security_deposit_amount, advance_payment_amount, created_at, updated_at)
		 VALUES (?, ?, '7-A', 'occupied', ?, 0, 0, ?, ?)`,
		unitID, propertyID, rent, now, now,
	).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return unitID
}

func (f *fixture) seedReading(t *testing.T, unitID snowflake.ID, utility billingdomain.UtilityType, prev, current string, daysAgo int) snowflake.ID {
	t.Helper()

	id := f.node.Generate()
	now := time.Now().UTC()
	if err := f.db.Exec(
		`INSERT INTO meter_readings (id, unit_id, utility_type, previous_reading, current_reading, reading_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, unitID, utility, prev, current, now.AddDate(0, 0, -daysAgo), now,
	).Error; err != nil {
		t.Fatalf("seed reading: %v", err)
	}
	return id
}

func TestGetOrCreateCurrentBillDerivesFromReadingsAndRent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t, "2500", "150")
	f.seedReading(t, unitID, billingdomain.UtilityWater, "100", "105", 1)         // 5 * 10 = 50
	f.seedReading(t, unitID, billingdomain.UtilityWater, "90", "100", 40)         // stale, ignored
	f.seedReading(t, unitID, billingdomain.UtilityElectricity, "1000", "1100", 1) // 100 * 2 = 200

	bill, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if !bill.TotalWaterAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("water: expected 50, got %s", bill.TotalWaterAmount)
	}
	if !bill.TotalElectricityAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("electricity: expected 200, got %s", bill.TotalElectricityAmount)
	}
	// 2500 + 50 + 200 + 150
	if !bill.TotalAmountDue.Equal(decimal.NewFromInt(2900)) {
		t.Fatalf("total: expected 2900, got %s", bill.TotalAmountDue)
	}
	if bill.Status != billingdomain.BillingStatusUnpaid {
		t.Fatalf("expected unpaid, got %s", bill.Status)
	}
}

func (f *fixture) seedPreviousMonthBill(t *testing.T, unitID snowflake.ID, status billingdomain.BillingStatus) snowflake.ID {
	t.Helper()

	id := f.node.Generate()
	now := time.Now().UTC()
	period := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	due := time.Date(period.Year(), period.Month(), 10, 0, 0, 0, 0, time.UTC)
	if err := f.db.Exec(
		`INSERT INTO billings (id, unit_id, billing_period, rent_amount, total_amount_due,
			status, due_date, created_at, updated_at)
		 VALUES (?, ?, ?, 2500, 2500, ?, ?, ?, ?)`,
		id, unitID, period, status, due, now, now,
	).Error; err != nil {
		t.Fatalf("seed previous bill: %v", err)
	}
	return id
}

func TestLateFeeChargedWhenPreviousBillPastDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t, "2500", "150")
	previousID := f.seedPreviousMonthBill(t, unitID, billingdomain.BillingStatusUnpaid)

	bill, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if !bill.PenaltyAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("penalty: expected 100, got %s", bill.PenaltyAmount)
	}
	// 2500 + 150 + 100
	if !bill.TotalAmountDue.Equal(decimal.NewFromInt(2750)) {
		t.Fatalf("total: expected 2750, got %s", bill.TotalAmountDue)
	}

	var status string
	if err := f.db.Raw("SELECT status FROM billings WHERE id = ?", previousID).Scan(&status).Error; err != nil {
		t.Fatalf("scan previous status: %v", err)
	}
	if status != string(billingdomain.BillingStatusOverdue) {
		t.Fatalf("previous bill should be overdue, got %s", status)
	}
}

func TestNoLateFeeWhenPreviousBillPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t, "2500", "150")
	previousID := f.seedPreviousMonthBill(t, unitID, billingdomain.BillingStatusPaid)

	bill, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if !bill.PenaltyAmount.IsZero() {
		t.Fatalf("penalty: expected zero, got %s", bill.PenaltyAmount)
	}

	var status string
	if err := f.db.Raw("SELECT status FROM billings WHERE id = ?", previousID).Scan(&status).Error; err != nil {
		t.Fatalf("scan previous status: %v", err)
	}
	if status != string(billingdomain.BillingStatusPaid) {
		t.Fatalf("paid bill must stay paid, got %s", status)
	}
}

func TestGetOrCreateCurrentBillIsStablePerMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t, "2500", "0")

	first, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("same month must return the same bill: %s vs %s", first.ID, second.ID)
	}

	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM billings").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one bill, got %d", count)
	}
}

func TestGetOrCreateCurrentBillUnknownUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.GetOrCreateCurrentBill(ctx, f.node.Generate())
	if err != billingdomain.ErrUnitNotFound {
		t.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
}

func TestApplyPaymentSettlesBillOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t, "2500", "0")

	bill, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}

	req := billingdomain.ApplyPaymentRequest{
		BillingID: bill.ID.String(),
		Reference: "bill_ref_1",
		Amount:    bill.TotalAmountDue,
	}
	first, err := f.svc.ApplyPayment(ctx, req)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if first.Duplicate || first.Status != billingdomain.BillingStatusPaid {
		t.Fatalf("unexpected result: %+v", first)
	}

	second, err := f.svc.ApplyPayment(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Duplicate || second.PaymentID != first.PaymentID {
		t.Fatalf("replay should answer from the original row: %+v", second)
	}

	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM payments").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one payment, got %d", count)
	}

	var paymentType string
	if err := f.db.Raw("SELECT payment_type FROM payments LIMIT 1").Scan(&paymentType).Error; err != nil {
		t.Fatalf("scan payment_type: %v", err)
	}
	if paymentType != string(paymentdomain.PaymentTypeMonthlyBilling) {
		t.Fatalf("expected monthly_billing, got %s", paymentType)
	}
}

func TestApplyPaymentAmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t, "2500", "0")

	bill, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}

	_, err = f.svc.ApplyPayment(ctx, billingdomain.ApplyPaymentRequest{
		BillingID: bill.ID.String(),
		Reference: "bill_ref_short",
		Amount:    bill.TotalAmountDue.Sub(decimal.NewFromInt(100)),
	})
	if err != billingdomain.ErrAmountMismatch {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	var status string
	if err := f.db.Raw("SELECT status FROM billings WHERE id = ?", bill.ID).Scan(&status).Error; err != nil {
		t.Fatalf("scan status: %v", err)
	}
	if status != string(billingdomain.BillingStatusUnpaid) {
		t.Fatalf("bill must stay unpaid, got %s", status)
	}
}

func TestApplyPaymentNewReferenceOnPaidBillConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t, "2500", "0")

	bill, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if _, err := f.svc.ApplyPayment(ctx, billingdomain.ApplyPaymentRequest{
		BillingID: bill.ID.String(),
		Reference: "bill_ref_a",
		Amount:    bill.TotalAmountDue,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err = f.svc.ApplyPayment(ctx, billingdomain.ApplyPaymentRequest{
		BillingID: bill.ID.String(),
		Reference: "bill_ref_b",
		Amount:    bill.TotalAmountDue,
	})
	if err != billingdomain.ErrAlreadyPaid {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestCorrectionRecomputesTotalAndRewritesLatestReading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t, "2500", "150")
	staleID := f.seedReading(t, unitID, billingdomain.UtilityWater, "90", "100", 40)
	latestID := f.seedReading(t, unitID, billingdomain.UtilityWater, "100", "105", 1)

	bill, err := f.svc.GetOrCreateCurrentBill(ctx, unitID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}

	water := decimal.NewFromInt(80)
	penalty := decimal.NewFromInt(100)
	reading := decimal.NewFromInt(108)
	updated, err := f.svc.UpdateReadingsAndAmounts(ctx, billingdomain.CorrectionRequest{
		BillingID:        bill.ID.String(),
		TotalWaterAmount: &water,
		PenaltyAmount:    &penalty,
		WaterReading:     &reading,
	})
	if err != nil {
		t.Fatalf("correct: %v", err)
	}

	// 2500 + 80 + 0 + 150 + 100
	if !updated.TotalAmountDue.Equal(decimal.NewFromInt(2830)) {
		t.Fatalf("total: expected 2830, got %s", updated.TotalAmountDue)
	}

	var readingCount int64
	if err := f.db.Raw("SELECT COUNT(1) FROM meter_readings WHERE unit_id = ?", unitID).Scan(&readingCount).Error; err != nil {
		t.Fatalf("count readings: %v", err)
	}
	if readingCount != 2 {
		t.Fatalf("correction must not append readings, got %d", readingCount)
	}

	var current string
	if err := f.db.Raw("SELECT current_reading FROM meter_readings WHERE id = ?", latestID).Scan(&current).Error; err != nil {
		t.Fatalf("scan latest: %v", err)
	}
	if !decimal.RequireFromString(current).Equal(reading) {
		t.Fatalf("latest reading not rewritten: %s", current)
	}

	var stale string
	if err := f.db.Raw("SELECT current_reading FROM meter_readings WHERE id = ?", staleID).Scan(&stale).Error; err != nil {
		t.Fatalf("scan stale: %v", err)
	}
	if !decimal.RequireFromString(stale).Equal(decimal.NewFromInt(100)) {
		t.Fatalf("stale reading must be untouched: %s", stale)
	}
}

func TestCorrectionUnknownBill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.UpdateReadingsAndAmounts(ctx, billingdomain.CorrectionRequest{
		BillingID: f.node.Generate().String(),
	})
	if err != billingdomain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
