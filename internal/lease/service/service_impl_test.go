package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	appdomain "github.com/leaseledger/leaseledger/internal/application/domain"
	apprepo "github.com/leaseledger/leaseledger/internal/application/repository"
	leasedomain "github.com/leaseledger/leaseledger/internal/lease/domain"
	leaserepo "github.com/leaseledger/leaseledger/internal/lease/repository"
	leaseservice "github.com/leaseledger/leaseledger/internal/lease/service"
	"github.com/leaseledger/leaseledger/internal/storage"
	"github.com/leaseledger/leaseledger/internal/vault"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// flakyStore wraps a real local store and fails deletes on demand.
type flakyStore struct {
	storage.Store
	failDelete bool
}

func (s *flakyStore) Delete(ctx context.Context, url string) error {
	if s.failDelete {
		return errors.New("object store unavailable")
	}
	return s.Store.Delete(ctx, url)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_lease_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		`CREATE TABLE prospective_tenants (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			unit_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			identity_document TEXT,
			income_document TEXT,
			message TEXT,
			superseded BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE lease_agreements (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			unit_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			start_date DATE,
			end_date DATE,
			is_security_deposit_paid BOOLEAN NOT NULL DEFAULT FALSE,
			is_advance_payment_paid BOOLEAN NOT NULL DEFAULT FALSE,
			agreement_document TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_lease_agreements_live_unit
			ON lease_agreements(unit_id) WHERE status IN ('pending', 'active')`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			agreement_id BIGINT NOT NULL REFERENCES lease_agreements(id),
			tenant_id BIGINT NOT NULL,
			payment_type TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			gateway_reference TEXT NOT NULL UNIQUE,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`PRAGMA foreign_keys = ON`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	store  *flakyStore
	docDir string
	svc    *leaseservice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	docDir := t.TempDir()
	local, err := storage.NewLocalStore(docDir)
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	store := &flakyStore{Store: local}
	svc := leaseservice.NewService(leaseservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    leaserepo.Provide(),
		AppRepo: apprepo.Provide(),
		Store:   store,
		Vault:   vault.New("lease-test-secret"),
	})
	return &fixture{db: db, node: node, store: store, docDir: docDir, svc: svc}
}

func (f *fixture) seedUnit(t *testing.T) snowflake.ID {
	t.Helper()

	id := f.node.Generate()
	now := time.Now().UTC()
	err := f.db.Exec(
		`INSERT INTO units (id, property_id, unit_number, status, rent_amount,
			security_deposit_amount, advance_payment_amount, created_at, updated_at)
		 VALUES (?, ?, ?, 'unoccupied', 2500, 2500, 2500, ?, ?)`,
		id, f.node.Generate(), "12-B", now, now,
	).Error
	if err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return id
}

func (f *fixture) seedApprovedApplication(t *testing.T, unitID snowflake.ID) (appID, tenantID snowflake.ID) {
	t.Helper()

	appID = f.node.Generate()
	tenantID = f.node.Generate()
	now := time.Now().UTC()
	err := f.db.Exec(
		`INSERT INTO prospective_tenants (id, tenant_id, unit_id, status, superseded, created_at, updated_at)
		 VALUES (?, ?, ?, ?, FALSE, ?, ?)`,
		appID, tenantID, unitID, appdomain.ApplicationStatusApproved, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed application: %v", err)
	}
	return appID, tenantID
}

func (f *fixture) seedConfirmedPayment(t *testing.T, unitID snowflake.ID) {
	t.Helper()

	var row struct {
		ID       snowflake.ID
		TenantID snowflake.ID
	}
	err := f.db.Raw("SELECT id, tenant_id FROM lease_agreements WHERE unit_id = ?", unitID).Scan(&row).Error
	if err != nil {
		t.Fatalf("find agreement: %v", err)
	}
	now := time.Now().UTC()
	err = f.db.Exec(
		`INSERT INTO payments (id, agreement_id, tenant_id, payment_type, amount,
			status, gateway_reference, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, 'rent', 2500, 'confirmed', ?, '{}', ?, ?)`,
		f.node.Generate(), row.ID, row.TenantID, f.node.Generate().String(), now, now,
	).Error
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
}

func (f *fixture) storedDocCount(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir(f.docDir)
	if err != nil {
		t.Fatalf("read doc dir: %v", err)
	}
	return len(entries)
}

func (f *fixture) unitStatus(t *testing.T, unitID snowflake.ID) string {
	t.Helper()

	var status string
	if err := f.db.Raw("SELECT status FROM units WHERE id = ?", unitID).Scan(&status).Error; err != nil {
		t.Fatalf("unit status: %v", err)
	}
	return status
}

func TestCreateDerivesPendingLeaseFromApprovedApplication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	appID, tenantID := f.seedApprovedApplication(t, unitID)

	resp, err := f.svc.Create(ctx, unitID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Status != leasedomain.LeaseStatusPending {
		t.Fatalf("expected pending, got %s", resp.Status)
	}
	if resp.TenantID != tenantID.String() {
		t.Fatalf("wrong tenant: %s", resp.TenantID)
	}
	if f.unitStatus(t, unitID) != "pending" {
		t.Fatalf("unit should be pending, got %s", f.unitStatus(t, unitID))
	}

	var superseded bool
	if err := f.db.Raw("SELECT superseded FROM prospective_tenants WHERE id = ?", appID).Scan(&superseded).Error; err != nil {
		t.Fatalf("scan superseded: %v", err)
	}
	if !superseded {
		t.Fatal("source application should be superseded")
	}
}

func TestCreateWithoutApprovedApplication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)

	_, err := f.svc.Create(ctx, unitID)
	if err != leasedomain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateIsIdempotentWhilePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	first, err := f.svc.Create(ctx, unitID)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := f.svc.Create(ctx, unitID)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("pending create should return the existing agreement")
	}

	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM lease_agreements").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one agreement, got %d", count)
	}
}

func TestCreateConflictsWithActiveLease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.Create(ctx, unitID); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.SetDates(ctx, leasedomain.SetDatesRequest{
		UnitID:    unitID.String(),
		StartDate: "2026-10-01",
		EndDate:   "2027-09-30",
	}); err != nil {
		t.Fatalf("set dates: %v", err)
	}

	_, err := f.svc.Create(ctx, unitID)
	if err != leasedomain.ErrLeaseExists {
		t.Fatalf("expected ErrLeaseExists, got %v", err)
	}
}

func TestSetDatesRejectsInvertedRangeWithoutMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.Create(ctx, unitID); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := f.svc.SetDates(ctx, leasedomain.SetDatesRequest{
		UnitID:    unitID.String(),
		StartDate: "2027-09-30",
		EndDate:   "2026-10-01",
	})
	if err != leasedomain.ErrInvalidDateRange {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}

	lease, err := f.svc.GetByUnit(ctx, unitID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lease.Status != leasedomain.LeaseStatusPending || lease.StartDate != nil {
		t.Fatalf("rejected set-dates must not mutate: %+v", lease)
	}
	if f.unitStatus(t, unitID) != "pending" {
		t.Fatalf("unit status changed: %s", f.unitStatus(t, unitID))
	}
}

func TestSetDatesActivatesLease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.Create(ctx, unitID); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := f.svc.SetDates(ctx, leasedomain.SetDatesRequest{
		UnitID:    unitID.String(),
		StartDate: "2026-10-01",
		EndDate:   "2027-09-30",
	})
	if err != nil {
		t.Fatalf("set dates: %v", err)
	}
	if resp.Status != leasedomain.LeaseStatusActive {
		t.Fatalf("expected active, got %s", resp.Status)
	}
	if f.unitStatus(t, unitID) != "occupied" {
		t.Fatalf("unit should be occupied, got %s", f.unitStatus(t, unitID))
	}
}

func TestSetDatesPromotesApplicationWhenNoPendingLease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	_, tenantID := f.seedApprovedApplication(t, unitID)

	resp, err := f.svc.SetDates(ctx, leasedomain.SetDatesRequest{
		UnitID:    unitID.String(),
		StartDate: "2026-10-01",
		EndDate:   "2027-09-30",
	})
	if err != nil {
		t.Fatalf("set dates: %v", err)
	}
	if resp.Status != leasedomain.LeaseStatusActive {
		t.Fatalf("expected active, got %s", resp.Status)
	}
	if resp.TenantID != tenantID.String() {
		t.Fatalf("wrong tenant: %s", resp.TenantID)
	}
}

func TestAttachDocumentCreatesPendingLease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	resp, err := f.svc.AttachDocument(ctx, leasedomain.AttachDocumentRequest{
		UnitID:   unitID.String(),
		FileName: "agreement.pdf",
		Data:     []byte("signed lease agreement"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !resp.HasDocument {
		t.Fatal("document reference missing")
	}
	if resp.Status != leasedomain.LeaseStatusPending {
		t.Fatalf("expected pending, got %s", resp.Status)
	}

	// reference at rest must be an encrypted envelope, not the raw url
	var stored string
	if err := f.db.Raw("SELECT agreement_document FROM lease_agreements LIMIT 1").Scan(&stored).Error; err != nil {
		t.Fatalf("scan document: %v", err)
	}
	if stored == "" || stored[0] != '{' {
		t.Fatalf("expected envelope, got %q", stored)
	}
}

func TestAttachDocumentOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.AttachDocument(ctx, leasedomain.AttachDocumentRequest{
		UnitID: unitID.String(), FileName: "v1.pdf", Data: []byte("first"),
	}); err != nil {
		t.Fatalf("attach v1: %v", err)
	}
	if _, err := f.svc.AttachDocument(ctx, leasedomain.AttachDocumentRequest{
		UnitID: unitID.String(), FileName: "v2.pdf", Data: []byte("second"),
	}); err != nil {
		t.Fatalf("attach v2: %v", err)
	}

	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM lease_agreements").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("re-upload must not create a second agreement, got %d", count)
	}
}

func TestDeleteRollsBackUnitAndApplication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	appID, _ := f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.Create(ctx, unitID); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.AttachDocument(ctx, leasedomain.AttachDocumentRequest{
		UnitID: unitID.String(), FileName: "agreement.pdf", Data: []byte("doc"),
	}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := f.svc.Delete(ctx, unitID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM lease_agreements").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("agreement should be gone, got %d", count)
	}
	if f.unitStatus(t, unitID) != "unoccupied" {
		t.Fatalf("unit should be unoccupied, got %s", f.unitStatus(t, unitID))
	}
	if n := f.storedDocCount(t); n != 0 {
		t.Fatalf("stored document should be removed, %d files remain", n)
	}

	var app struct {
		Status     string
		Superseded bool
	}
	if err := f.db.Raw("SELECT status, superseded FROM prospective_tenants WHERE id = ?", appID).Scan(&app).Error; err != nil {
		t.Fatalf("scan application: %v", err)
	}
	if app.Status != string(appdomain.ApplicationStatusPending) || app.Superseded {
		t.Fatalf("application should be back to pending: %+v", app)
	}
}

func TestDeleteRefusesSettledLease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.Create(ctx, unitID); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.AttachDocument(ctx, leasedomain.AttachDocumentRequest{
		UnitID: unitID.String(), FileName: "agreement.pdf", Data: []byte("doc"),
	}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	f.seedConfirmedPayment(t, unitID)

	err := f.svc.Delete(ctx, unitID)
	if err != leasedomain.ErrSettled {
		t.Fatalf("expected ErrSettled, got %v", err)
	}

	// a refused delete must leave both the row and the document untouched
	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM lease_agreements").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("agreement must survive a refused delete, got %d", count)
	}
	if n := f.storedDocCount(t); n != 1 {
		t.Fatalf("stored document must survive a refused delete, got %d files", n)
	}
	if f.unitStatus(t, unitID) != "pending" {
		t.Fatalf("unit status must be unchanged, got %s", f.unitStatus(t, unitID))
	}
}

func TestDeleteSucceedsWhenDocumentStoreFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	appID, _ := f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.Create(ctx, unitID); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.AttachDocument(ctx, leasedomain.AttachDocumentRequest{
		UnitID: unitID.String(), FileName: "agreement.pdf", Data: []byte("doc"),
	}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	// document cleanup runs after commit and is best effort; a store outage
	// must not hold the deleted row hostage
	f.store.failDelete = true
	if err := f.svc.Delete(ctx, unitID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM lease_agreements").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("agreement should be gone, got %d", count)
	}
	if f.unitStatus(t, unitID) != "unoccupied" {
		t.Fatalf("unit should be unoccupied, got %s", f.unitStatus(t, unitID))
	}

	var status string
	if err := f.db.Raw("SELECT status FROM prospective_tenants WHERE id = ?", appID).Scan(&status).Error; err != nil {
		t.Fatalf("scan application: %v", err)
	}
	if status != string(appdomain.ApplicationStatusPending) {
		t.Fatalf("application should be back to pending, got %s", status)
	}
}

func TestTerminateRequiresActiveLease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.Create(ctx, unitID); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := f.svc.Terminate(ctx, unitID)
	if err != leasedomain.ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestTerminateFreesUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unitID := f.seedUnit(t)
	f.seedApprovedApplication(t, unitID)

	if _, err := f.svc.SetDates(ctx, leasedomain.SetDatesRequest{
		UnitID:    unitID.String(),
		StartDate: "2026-10-01",
		EndDate:   "2027-09-30",
	}); err != nil {
		t.Fatalf("set dates: %v", err)
	}

	resp, err := f.svc.Terminate(ctx, unitID)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if resp.Status != leasedomain.LeaseStatusTerminated {
		t.Fatalf("expected terminated, got %s", resp.Status)
	}
	if f.unitStatus(t, unitID) != "unoccupied" {
		t.Fatalf("unit should be unoccupied, got %s", f.unitStatus(t, unitID))
	}

	// terminated row stays for audit history
	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM lease_agreements").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("terminated lease should remain, got %d", count)
	}

	// a new tenant can lease the unit afterwards
	f.seedApprovedApplication(t, unitID)
	if _, err := f.svc.Create(ctx, unitID); err != nil {
		t.Fatalf("new lease after termination: %v", err)
	}
}
