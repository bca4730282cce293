package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	appdomain "github.com/leaseledger/leaseledger/internal/application/domain"
	"github.com/leaseledger/leaseledger/internal/lease/domain"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	"github.com/leaseledger/leaseledger/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const leaseColumns = `id, tenant_id, unit_id, status, start_date, end_date,
	is_security_deposit_paid, is_advance_payment_paid, agreement_document,
	created_at, updated_at`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, lease *domain.LeaseAgreement) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO lease_agreements (
			id, tenant_id, unit_id, status, start_date, end_date,
			is_security_deposit_paid, is_advance_payment_paid,
			agreement_document, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lease.ID,
		lease.TenantID,
		lease.UnitID,
		lease.Status,
		lease.StartDate,
		lease.EndDate,
		lease.IsSecurityDepositPaid,
		lease.IsAdvancePaymentPaid,
		lease.AgreementDocument,
		lease.CreatedAt,
		lease.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.LeaseAgreement, error) {
	return r.findOne(ctx, conn, `SELECT `+leaseColumns+` FROM lease_agreements WHERE id = ? LIMIT 1`, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.LeaseAgreement, error) {
	var item domain.LeaseAgreement
	err := db.ForUpdate(conn.WithContext(ctx)).
		Table("lease_agreements").
		Select(leaseColumns).
		Where("id = ?", id).
		Limit(1).
		Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindLiveByUnit(ctx context.Context, conn *gorm.DB, unitID snowflake.ID) (*domain.LeaseAgreement, error) {
	return r.findOne(ctx, conn,
		`SELECT `+leaseColumns+`
		 FROM lease_agreements
		 WHERE unit_id = ? AND status IN (?, ?)
		 LIMIT 1`,
		unitID, domain.LeaseStatusPending, domain.LeaseStatusActive)
}

func (r *repo) FindLiveByUnitForUpdate(ctx context.Context, conn *gorm.DB, unitID snowflake.ID) (*domain.LeaseAgreement, error) {
	var item domain.LeaseAgreement
	err := db.ForUpdate(conn.WithContext(ctx)).
		Table("lease_agreements").
		Select(leaseColumns).
		Where("unit_id = ? AND status IN (?, ?)", unitID, domain.LeaseStatusPending, domain.LeaseStatusActive).
		Limit(1).
		Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateDocument(ctx context.Context, conn *gorm.DB, id snowflake.ID, document string) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE lease_agreements
		 SET agreement_document = ?, updated_at = ?
		 WHERE id = ?`,
		document,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) Activate(ctx context.Context, conn *gorm.DB, id snowflake.ID, start, end time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE lease_agreements
		 SET start_date = ?, end_date = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		start,
		end,
		domain.LeaseStatusActive,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, status domain.LeaseStatus) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE lease_agreements
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) UpdatePaidFlags(ctx context.Context, conn *gorm.DB, id snowflake.ID, securityDeposit, advancePayment bool) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE lease_agreements
		 SET is_security_deposit_paid = ?, is_advance_payment_paid = ?, updated_at = ?
		 WHERE id = ?`,
		securityDeposit,
		advancePayment,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) CountConfirmedPayments(ctx context.Context, conn *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM payments WHERE agreement_id = ? AND status = 'confirmed'`,
		id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return conn.WithContext(ctx).Exec(
		`DELETE FROM lease_agreements WHERE id = ?`,
		id,
	).Error
}

func (r *repo) UpdateUnitStatus(ctx context.Context, conn *gorm.DB, unitID snowflake.ID, status unitdomain.UnitStatus) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE units
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		unitID,
	).Error
}

func (r *repo) SetApplicationSuperseded(ctx context.Context, conn *gorm.DB, applicationID snowflake.ID, superseded bool) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE prospective_tenants
		 SET superseded = ?, updated_at = ?
		 WHERE id = ?`,
		superseded,
		time.Now().UTC(),
		applicationID,
	).Error
}

func (r *repo) FindSourceApplicationID(ctx context.Context, conn *gorm.DB, unitID, tenantID snowflake.ID) (snowflake.ID, error) {
	var id snowflake.ID
	err := conn.WithContext(ctx).Raw(
		`SELECT id FROM prospective_tenants
		 WHERE unit_id = ? AND tenant_id = ? AND status = ?
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		unitID,
		tenantID,
		appdomain.ApplicationStatusApproved,
	).Scan(&id).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) RevertApplicationToPending(ctx context.Context, conn *gorm.DB, applicationID snowflake.ID) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE prospective_tenants
		 SET status = ?, superseded = FALSE, updated_at = ?
		 WHERE id = ?`,
		appdomain.ApplicationStatusPending,
		time.Now().UTC(),
		applicationID,
	).Error
}

func (r *repo) findOne(ctx context.Context, conn *gorm.DB, query string, args ...any) (*domain.LeaseAgreement, error) {
	var item domain.LeaseAgreement
	err := conn.WithContext(ctx).Raw(query, args...).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
