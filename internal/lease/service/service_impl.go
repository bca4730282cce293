package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	appdomain "github.com/leaseledger/leaseledger/internal/application/domain"
	"github.com/leaseledger/leaseledger/internal/lease/domain"
	"github.com/leaseledger/leaseledger/internal/metrics"
	"github.com/leaseledger/leaseledger/internal/notify"
	"github.com/leaseledger/leaseledger/internal/storage"
	unitdomain "github.com/leaseledger/leaseledger/internal/unit/domain"
	"github.com/leaseledger/leaseledger/internal/vault"
	pkgdb "github.com/leaseledger/leaseledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	AppRepo appdomain.Repository
	Store   storage.Store
	Vault   *vault.Vault
	Sink    notify.Sink      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	appRepo appdomain.Repository
	store   storage.Store
	vault   *vault.Vault
	sink    notify.Sink
	metrics *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("lease.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		appRepo: p.AppRepo,
		store:   p.Store,
		vault:   p.Vault,
		sink:    p.Sink,
		metrics: p.Metrics,
	}
}

// ResolveTenantForUnit is the single tenant-resolution path: the live lease
// wins, otherwise the most recent approved application.
func (s *Service) ResolveTenantForUnit(ctx context.Context, unitID snowflake.ID) (*domain.ResolvedTenant, error) {
	return s.resolveTenant(ctx, s.db, unitID, false)
}

func (s *Service) resolveTenant(ctx context.Context, conn *gorm.DB, unitID snowflake.ID, lock bool) (*domain.ResolvedTenant, error) {
	if unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}

	var lease *domain.LeaseAgreement
	var err error
	if lock {
		lease, err = s.repo.FindLiveByUnitForUpdate(ctx, conn, unitID)
	} else {
		lease, err = s.repo.FindLiveByUnit(ctx, conn, unitID)
	}
	if err != nil {
		return nil, err
	}
	if lease != nil {
		return &domain.ResolvedTenant{TenantID: lease.TenantID, Lease: lease}, nil
	}

	application, err := s.appRepo.FindApprovedByUnit(ctx, conn, unitID)
	if err != nil {
		return nil, err
	}
	if application == nil {
		return nil, domain.ErrNotFound
	}
	return &domain.ResolvedTenant{
		TenantID:      application.TenantID,
		ApplicationID: application.ID,
	}, nil
}

// Create derives a pending lease agreement from the unit's approved
// application. A second create while a pending agreement exists returns the
// existing agreement; an active agreement is a conflict.
func (s *Service) Create(ctx context.Context, unitID snowflake.ID) (*domain.Response, error) {
	if unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}

	var out *domain.LeaseAgreement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindLiveByUnitForUpdate(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == domain.LeaseStatusActive {
				return domain.ErrLeaseExists
			}
			out = existing
			return nil
		}

		application, err := s.appRepo.FindApprovedByUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if application == nil {
			return domain.ErrNotFound
		}

		now := time.Now().UTC()
		lease := domain.LeaseAgreement{
			ID:        s.genID.Generate(),
			TenantID:  application.TenantID,
			UnitID:    unitID,
			Status:    domain.LeaseStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, &lease); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrLeaseExists
			}
			return err
		}
		if err := s.repo.SetApplicationSuperseded(ctx, tx, application.ID, true); err != nil {
			return err
		}
		if err := s.repo.UpdateUnitStatus(ctx, tx, unitID, unitdomain.UnitStatusPending); err != nil {
			return err
		}
		out = &lease
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLeaseTransition(string(out.Status))
	return s.toResponse(out), nil
}

// AttachDocument uploads the signed agreement and stores its encrypted
// reference. The upload happens before the transaction opens so no row lock
// spans the network call; re-upload overwrites.
func (s *Service) AttachDocument(ctx context.Context, req domain.AttachDocumentRequest) (*domain.Response, error) {
	unitID, err := domain.ParseID(strings.TrimSpace(req.UnitID))
	if err != nil || unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}
	if len(req.Data) == 0 {
		return nil, domain.ErrInvalidDocument
	}

	url, err := s.store.Put(ctx, req.FileName, req.Data)
	if err != nil {
		s.log.Error("document upload failed", zap.Error(err))
		return nil, domain.ErrDocumentStore
	}
	sealed, err := s.vault.Encrypt(url)
	if err != nil {
		return nil, err
	}

	var out *domain.LeaseAgreement
	var previous string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		resolved, err := s.resolveTenant(ctx, tx, unitID, true)
		if err != nil {
			return err
		}

		if resolved.Lease != nil {
			previous = resolved.Lease.AgreementDocument
			if err := s.repo.UpdateDocument(ctx, tx, resolved.Lease.ID, sealed); err != nil {
				return err
			}
			resolved.Lease.AgreementDocument = sealed
			out = resolved.Lease
			return nil
		}

		// No pending agreement yet: derive one from the approved
		// application so the document has a home.
		now := time.Now().UTC()
		lease := domain.LeaseAgreement{
			ID:                s.genID.Generate(),
			TenantID:          resolved.TenantID,
			UnitID:            unitID,
			Status:            domain.LeaseStatusPending,
			AgreementDocument: sealed,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.repo.Insert(ctx, tx, &lease); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrLeaseExists
			}
			return err
		}
		if err := s.repo.SetApplicationSuperseded(ctx, tx, resolved.ApplicationID, true); err != nil {
			return err
		}
		if err := s.repo.UpdateUnitStatus(ctx, tx, unitID, unitdomain.UnitStatusPending); err != nil {
			return err
		}
		out = &lease
		return nil
	})
	if err != nil {
		// The uploaded object is unreachable from any row; remove it.
		if delErr := s.store.Delete(ctx, url); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			s.log.Warn("orphaned document cleanup failed", zap.Error(delErr))
		}
		return nil, err
	}

	s.removeStoredDocument(ctx, previous)
	return s.toResponse(out), nil
}

// SetDates validates the lease window and activates the agreement. When no
// pending agreement exists yet the approved application is promoted straight
// to an active lease.
func (s *Service) SetDates(ctx context.Context, req domain.SetDatesRequest) (*domain.Response, error) {
	unitID, err := domain.ParseID(strings.TrimSpace(req.UnitID))
	if err != nil || unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		return nil, domain.ErrInvalidDateRange
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(req.EndDate))
	if err != nil {
		return nil, domain.ErrInvalidDateRange
	}
	if !end.After(start) {
		return nil, domain.ErrInvalidDateRange
	}

	var out *domain.LeaseAgreement
	var tenantID snowflake.ID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		resolved, err := s.resolveTenant(ctx, tx, unitID, true)
		if err != nil {
			return err
		}
		tenantID = resolved.TenantID

		if resolved.Lease != nil {
			lease := resolved.Lease
			if err := s.repo.Activate(ctx, tx, lease.ID, start, end); err != nil {
				return err
			}
			lease.StartDate = &start
			lease.EndDate = &end
			lease.Status = domain.LeaseStatusActive
			out = lease
		} else {
			now := time.Now().UTC()
			lease := domain.LeaseAgreement{
				ID:        s.genID.Generate(),
				TenantID:  resolved.TenantID,
				UnitID:    unitID,
				Status:    domain.LeaseStatusActive,
				StartDate: &start,
				EndDate:   &end,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.Insert(ctx, tx, &lease); err != nil {
				if pkgdb.IsDuplicateKeyErr(err) {
					return domain.ErrLeaseExists
				}
				return err
			}
			if err := s.repo.SetApplicationSuperseded(ctx, tx, resolved.ApplicationID, true); err != nil {
				return err
			}
			out = &lease
		}

		return s.repo.UpdateUnitStatus(ctx, tx, unitID, unitdomain.UnitStatusOccupied)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLeaseTransition(string(domain.LeaseStatusActive))
	if s.sink != nil {
		s.sink.Notify(ctx, tenantID, "Lease activated",
			"Your lease agreement is now active. Settle your security deposit and advance rent to move in.")
	}
	return s.toResponse(out), nil
}

// Delete removes the agreement and rolls the unit and application back to
// their pre-lease states. Agreements with confirmed payments are refused:
// payment rows reference the agreement, and settled money keeps its audit
// trail. The stored document is removed only after the transaction commits,
// so an aborted delete never loses the file; a crash between commit and
// removal leaves an orphaned file, which the next store sweep can collect.
func (s *Service) Delete(ctx context.Context, unitID snowflake.ID) error {
	if unitID == 0 {
		return domain.ErrInvalidUnit
	}

	var sealed string
	var tenantID snowflake.ID
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindLiveByUnitForUpdate(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		sealed = current.AgreementDocument
		tenantID = current.TenantID

		settled, err := s.repo.CountConfirmedPayments(ctx, tx, current.ID)
		if err != nil {
			return err
		}
		if settled > 0 {
			return domain.ErrSettled
		}

		if err := s.repo.Delete(ctx, tx, current.ID); err != nil {
			return err
		}

		applicationID, err := s.repo.FindSourceApplicationID(ctx, tx, unitID, current.TenantID)
		if err != nil {
			return err
		}
		if applicationID != 0 {
			if err := s.repo.RevertApplicationToPending(ctx, tx, applicationID); err != nil {
				return err
			}
		}

		return s.repo.UpdateUnitStatus(ctx, tx, unitID, unitdomain.UnitStatusUnoccupied)
	})
	if err != nil {
		return err
	}

	s.removeStoredDocument(ctx, sealed)

	if s.sink != nil {
		s.sink.Notify(ctx, tenantID, "Lease cancelled",
			"Your lease agreement has been removed. Your application returns to the pending queue.")
	}
	return nil
}

// Terminate ends an active lease at its natural close, keeping the row for
// audit history.
func (s *Service) Terminate(ctx context.Context, unitID snowflake.ID) (*domain.Response, error) {
	if unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}

	var out *domain.LeaseAgreement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		lease, err := s.repo.FindLiveByUnitForUpdate(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if lease == nil {
			return domain.ErrNotFound
		}
		if lease.Status != domain.LeaseStatusActive {
			return domain.ErrNotActive
		}
		if err := s.repo.UpdateStatus(ctx, tx, lease.ID, domain.LeaseStatusTerminated); err != nil {
			return err
		}
		if err := s.repo.UpdateUnitStatus(ctx, tx, unitID, unitdomain.UnitStatusUnoccupied); err != nil {
			return err
		}
		lease.Status = domain.LeaseStatusTerminated
		out = lease
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLeaseTransition(string(domain.LeaseStatusTerminated))
	return s.toResponse(out), nil
}

func (s *Service) GetByUnit(ctx context.Context, unitID snowflake.ID) (*domain.Response, error) {
	if unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}
	lease, err := s.repo.FindLiveByUnit(ctx, s.db, unitID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, domain.ErrNotFound
	}
	return s.toResponse(lease), nil
}

func (s *Service) removeStoredDocument(ctx context.Context, sealed string) {
	if sealed == "" {
		return
	}
	url, err := s.vault.Decrypt(sealed)
	if err != nil {
		s.log.Warn("previous document reference unreadable")
		return
	}
	if err := s.store.Delete(ctx, url); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("previous document cleanup failed", zap.Error(err))
	}
}

func (s *Service) toResponse(lease *domain.LeaseAgreement) *domain.Response {
	return &domain.Response{
		ID:                    lease.ID.String(),
		TenantID:              lease.TenantID.String(),
		UnitID:                lease.UnitID.String(),
		Status:                lease.Status,
		StartDate:             lease.StartDate,
		EndDate:               lease.EndDate,
		IsSecurityDepositPaid: lease.IsSecurityDepositPaid,
		IsAdvancePaymentPaid:  lease.IsAdvancePaymentPaid,
		HasDocument:           lease.AgreementDocument != "",
		CreatedAt:             lease.CreatedAt,
		UpdatedAt:             lease.UpdatedAt,
	}
}
