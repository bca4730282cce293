package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/leaseledger/leaseledger/internal/application/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, application *domain.ProspectiveTenant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO prospective_tenants (
			id, tenant_id, unit_id, status, identity_document, income_document,
			message, superseded, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		application.ID,
		application.TenantID,
		application.UnitID,
		application.Status,
		application.IdentityDocument,
		application.IncomeDocument,
		application.Message,
		application.Superseded,
		application.CreatedAt,
		application.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ProspectiveTenant, error) {
	var item domain.ProspectiveTenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, unit_id, status, identity_document, income_document,
			message, superseded, created_at, updated_at
		 FROM prospective_tenants
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// FindLive returns the non-superseded application for a unit+tenant pair,
// preferring an approved row over a pending one.
func (r *repo) FindLive(ctx context.Context, db *gorm.DB, unitID, tenantID snowflake.ID) (*domain.ProspectiveTenant, error) {
	var item domain.ProspectiveTenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, unit_id, status, identity_document, income_document,
			message, superseded, created_at, updated_at
		 FROM prospective_tenants
		 WHERE unit_id = ? AND tenant_id = ? AND superseded = FALSE
		   AND status IN (?, ?)
		 ORDER BY CASE status WHEN ? THEN 0 ELSE 1 END, created_at DESC
		 LIMIT 1`,
		unitID,
		tenantID,
		domain.ApplicationStatusApproved,
		domain.ApplicationStatusPending,
		domain.ApplicationStatusApproved,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindApprovedByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (*domain.ProspectiveTenant, error) {
	var item domain.ProspectiveTenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, unit_id, status, identity_document, income_document,
			message, superseded, created_at, updated_at
		 FROM prospective_tenants
		 WHERE unit_id = ? AND status = ? AND superseded = FALSE
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		unitID,
		domain.ApplicationStatusApproved,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]domain.ProspectiveTenant, error) {
	var items []domain.ProspectiveTenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, unit_id, status, identity_document, income_document,
			message, superseded, created_at, updated_at
		 FROM prospective_tenants
		 WHERE unit_id = ?
		 ORDER BY created_at DESC`,
		unitID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.ApplicationStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE prospective_tenants
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}
