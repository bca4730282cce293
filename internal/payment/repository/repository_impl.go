package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/leaseledger/leaseledger/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertConfirmed(ctx context.Context, db *gorm.DB, payment *domain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, agreement_id, billing_id, payment_type, amount_paid, status,
			gateway_reference, metadata, payment_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway_reference) DO NOTHING`,
		payment.ID,
		payment.AgreementID,
		payment.BillingID,
		payment.PaymentType,
		payment.AmountPaid,
		payment.Status,
		payment.GatewayReference,
		payment.Metadata,
		payment.PaymentDate,
		payment.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindConfirmedByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, agreement_id, billing_id, payment_type, amount_paid, status,
			gateway_reference, metadata, payment_date, created_at
		 FROM payments
		 WHERE gateway_reference = ? AND status = ?
		 LIMIT 1`,
		reference,
		domain.PaymentStatusConfirmed,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByAgreement(ctx context.Context, db *gorm.DB, agreementID snowflake.ID) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, agreement_id, billing_id, payment_type, amount_paid, status,
			gateway_reference, metadata, payment_date, created_at
		 FROM payments
		 WHERE agreement_id = ?
		 ORDER BY payment_date DESC`,
		agreementID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
