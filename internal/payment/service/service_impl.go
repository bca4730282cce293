package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/leaseledger/leaseledger/internal/config"
	leasedomain "github.com/leaseledger/leaseledger/internal/lease/domain"
	"github.com/leaseledger/leaseledger/internal/metrics"
	"github.com/leaseledger/leaseledger/internal/notify"
	paymentdomain "github.com/leaseledger/leaseledger/internal/payment/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      paymentdomain.Repository
	LeaseRepo leasedomain.Repository
	Gateway   paymentdomain.Gateway
	Sink      notify.Sink      `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
	Config    config.Config
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      paymentdomain.Repository
	leaseRepo leasedomain.Repository
	gateway   paymentdomain.Gateway
	sink      notify.Sink
	metrics   *metrics.Metrics

	successURL string
	failureURL string
	cancelURL  string

	abandonWindow time.Duration
}

func NewService(p Params) *Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		leaseRepo:     p.LeaseRepo,
		gateway:       p.Gateway,
		sink:          p.Sink,
		metrics:       p.Metrics,
		successURL:    p.Config.GatewaySuccessURL,
		failureURL:    p.Config.GatewayFailureURL,
		cancelURL:     p.Config.GatewayCancelURL,
		abandonWindow: p.Config.CheckoutAbandonWindow,
	}
}

// Initiate validates the requested obligations and asks the gateway for a
// hosted checkout. No payment row is written here: the payer may never
// return, and an abandoned checkout must not leak ledger state. The gateway
// call runs outside any transaction.
func (s *Service) Initiate(ctx context.Context, req paymentdomain.InitiateRequest) (*paymentdomain.CheckoutDescriptor, error) {
	agreementID, err := paymentdomain.ParseID(strings.TrimSpace(req.AgreementID))
	if err != nil || agreementID == 0 {
		return nil, paymentdomain.ErrInvalidAgreement
	}
	total, _, _, err := validateItems(req.Items)
	if err != nil {
		return nil, err
	}

	lease, err := s.leaseRepo.FindByID(ctx, s.db, agreementID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, paymentdomain.ErrAgreementNotFound
	}

	reference := newReference(agreementID)

	checkout, err := s.gateway.CreateCheckout(ctx, paymentdomain.CheckoutRequest{
		Reference:   reference,
		Amount:      total,
		Description: checkoutDescription(req.Items),
		PayerName:   strings.TrimSpace(req.PayerName),
		PayerEmail:  strings.TrimSpace(req.PayerEmail),
		SuccessURL:  s.successURL,
		FailureURL:  s.failureURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		s.log.Error("checkout creation failed",
			zap.String("agreement_id", agreementID.String()),
			zap.Error(err),
		)
		return nil, paymentdomain.ErrGateway
	}

	return &paymentdomain.CheckoutDescriptor{
		Reference:   checkout.Reference,
		CheckoutURL: checkout.CheckoutURL,
		TotalAmount: total,
		ExpiresAt:   time.Now().UTC().Add(s.abandonWindow),
	}, nil
}

// Confirm reconciles a gateway callback against the ledger exactly once per
// reference. Replays return the original result; obligations already settled
// through another reference become a no-op; everything else inserts one
// confirmed payment and flips the agreement flags, all under one transaction
// with the agreement row locked.
func (s *Service) Confirm(ctx context.Context, req paymentdomain.ConfirmRequest) (*paymentdomain.ConfirmResult, error) {
	agreementID, err := paymentdomain.ParseID(strings.TrimSpace(req.AgreementID))
	if err != nil || agreementID == 0 {
		return nil, paymentdomain.ErrInvalidAgreement
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, paymentdomain.ErrInvalidReference
	}
	total, wantDeposit, wantAdvance, err := validateItems(req.Items)
	if err != nil {
		return nil, err
	}
	if total.Sub(req.TotalAmount).Abs().GreaterThan(paymentdomain.RoundingTolerance) {
		return nil, paymentdomain.ErrAmountMismatch
	}

	var (
		result   *paymentdomain.ConfirmResult
		tenantID snowflake.ID
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindConfirmedByReference(ctx, tx, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			result = s.replayResult(ctx, tx, existing)
			return nil
		}

		lease, err := s.leaseRepo.FindByIDForUpdate(ctx, tx, agreementID)
		if err != nil {
			return err
		}
		if lease == nil {
			return paymentdomain.ErrAgreementNotFound
		}
		tenantID = lease.TenantID

		depositCovered := !wantDeposit || lease.IsSecurityDepositPaid
		advanceCovered := !wantAdvance || lease.IsAdvancePaymentPaid
		if depositCovered && advanceCovered {
			result = &paymentdomain.ConfirmResult{
				Reference:             reference,
				AmountPaid:            decimal.Zero,
				IsSecurityDepositPaid: lease.IsSecurityDepositPaid,
				IsAdvancePaymentPaid:  lease.IsAdvancePaymentPaid,
				NoOp:                  true,
			}
			return nil
		}

		now := time.Now().UTC()
		payment := paymentdomain.Payment{
			ID:               s.genID.Generate(),
			AgreementID:      &agreementID,
			PaymentType:      combinedType(wantDeposit, wantAdvance),
			AmountPaid:       total,
			Status:           paymentdomain.PaymentStatusConfirmed,
			GatewayReference: reference,
			Metadata:         itemMetadata(req.Items),
			PaymentDate:      now,
			CreatedAt:        now,
		}
		inserted, err := s.repo.InsertConfirmed(ctx, tx, &payment)
		if err != nil {
			return err
		}
		if !inserted {
			// A concurrent callback for the same reference won the
			// unique-index race; answer from its row.
			winner, err := s.repo.FindConfirmedByReference(ctx, tx, reference)
			if err != nil {
				return err
			}
			if winner == nil {
				return paymentdomain.ErrInvalidReference
			}
			result = s.replayResult(ctx, tx, winner)
			return nil
		}

		newDeposit := lease.IsSecurityDepositPaid || wantDeposit
		newAdvance := lease.IsAdvancePaymentPaid || wantAdvance
		if err := s.leaseRepo.UpdatePaidFlags(ctx, tx, lease.ID, newDeposit, newAdvance); err != nil {
			return err
		}

		result = &paymentdomain.ConfirmResult{
			PaymentID:             payment.ID.String(),
			Reference:             reference,
			PaymentType:           payment.PaymentType,
			AmountPaid:            payment.AmountPaid,
			IsSecurityDepositPaid: newDeposit,
			IsAdvancePaymentPaid:  newAdvance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case result.Duplicate:
		s.metrics.RecordDuplicateCallback()
	case !result.NoOp:
		s.metrics.RecordPaymentConfirmed(string(result.PaymentType))
		if s.sink != nil {
			s.sink.Notify(ctx, tenantID, "Payment received",
				fmt.Sprintf("Payment of %s confirmed (ref %s).", result.AmountPaid.StringFixed(2), reference))
		}
	}
	return result, nil
}

// Cancel handles the gateway's cancel redirect. Initiation wrote nothing, so
// an abandoned checkout needs no reversal; cancelling a reference that has
// already confirmed is a conflict — settled payments do not un-settle
// through this path.
func (s *Service) Cancel(ctx context.Context, req paymentdomain.CancelRequest) error {
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return paymentdomain.ErrInvalidReference
	}

	existing, err := s.repo.FindConfirmedByReference(ctx, s.db, reference)
	if err != nil {
		return err
	}
	if existing != nil {
		return paymentdomain.ErrAlreadyConfirmed
	}

	s.log.Info("checkout cancelled",
		zap.String("agreement_id", strings.TrimSpace(req.AgreementID)),
		zap.String("reference", reference),
	)
	return nil
}

func (s *Service) ListByAgreement(ctx context.Context, agreementID snowflake.ID) ([]paymentdomain.Payment, error) {
	if agreementID == 0 {
		return nil, paymentdomain.ErrInvalidAgreement
	}
	return s.repo.ListByAgreement(ctx, s.db, agreementID)
}

func (s *Service) replayResult(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment) *paymentdomain.ConfirmResult {
	result := &paymentdomain.ConfirmResult{
		PaymentID:   payment.ID.String(),
		Reference:   payment.GatewayReference,
		PaymentType: payment.PaymentType,
		AmountPaid:  payment.AmountPaid,
		Duplicate:   true,
	}
	if payment.AgreementID != nil {
		if lease, err := s.leaseRepo.FindByID(ctx, tx, *payment.AgreementID); err == nil && lease != nil {
			result.IsSecurityDepositPaid = lease.IsSecurityDepositPaid
			result.IsAdvancePaymentPaid = lease.IsAdvancePaymentPaid
		}
	}
	return result
}

// validateItems checks each item and reports the summed total plus which
// obligations the items cover.
func validateItems(items []paymentdomain.Item) (decimal.Decimal, bool, bool, error) {
	if len(items) == 0 {
		return decimal.Zero, false, false, paymentdomain.ErrInvalidItems
	}
	total := decimal.Zero
	var wantDeposit, wantAdvance bool
	for _, item := range items {
		switch item.Type {
		case paymentdomain.PaymentTypeSecurityDeposit:
			wantDeposit = true
		case paymentdomain.PaymentTypeAdvanceRent:
			wantAdvance = true
		default:
			return decimal.Zero, false, false, paymentdomain.ErrInvalidItems
		}
		if !item.Amount.IsPositive() {
			return decimal.Zero, false, false, paymentdomain.ErrInvalidAmount
		}
		total = total.Add(item.Amount)
	}
	return total, wantDeposit, wantAdvance, nil
}

func combinedType(deposit, advance bool) paymentdomain.PaymentType {
	switch {
	case deposit && advance:
		return paymentdomain.PaymentTypeSecAndAdv
	case deposit:
		return paymentdomain.PaymentTypeSecurityDeposit
	default:
		return paymentdomain.PaymentTypeAdvanceRent
	}
}

// newReference builds an unguessable per-attempt reference. The agreement id
// and timestamp make collisions across agreements impossible; the random
// suffix makes the value unguessable by a replaying client.
func newReference(agreementID snowflake.ID) string {
	return fmt.Sprintf("pay_%s_%d_%s",
		agreementID.String(),
		time.Now().UTC().UnixNano(),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
	)
}

// itemMetadata records the per-item breakdown a combined row would otherwise
// flatten away.
func itemMetadata(items []paymentdomain.Item) datatypes.JSONMap {
	meta := datatypes.JSONMap{}
	for _, item := range items {
		meta[string(item.Type)] = item.Amount.StringFixed(2)
	}
	return meta
}

func checkoutDescription(items []paymentdomain.Item) string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, string(item.Type))
	}
	return "Lease settlement: " + strings.Join(labels, " + ")
}
