package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/leaseledger/leaseledger/internal/application/domain"
	"github.com/leaseledger/leaseledger/internal/notify"
	"github.com/leaseledger/leaseledger/internal/vault"
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
	Vault *vault.Vault
	Sink  notify.Sink `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	vault *vault.Vault
	sink  notify.Sink
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("application.service"),
		genID: p.GenID,
		repo:  p.Repo,
		vault: p.Vault,
		sink:  p.Sink,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Response, error) {
	tenantID, err := domain.ParseID(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	unitID, err := domain.ParseID(strings.TrimSpace(req.UnitID))
	if err != nil || unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}

	identityDoc, err := s.sealDocument(req.IdentityDocumentURL)
	if err != nil {
		return nil, err
	}
	incomeDoc, err := s.sealDocument(req.IncomeDocumentURL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := domain.ProspectiveTenant{
		ID:               s.genID.Generate(),
		TenantID:         tenantID,
		UnitID:           unitID,
		Status:           domain.ApplicationStatusPending,
		IdentityDocument: identityDoc,
		IncomeDocument:   incomeDoc,
		Message:          strings.TrimSpace(req.Message),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		return nil, err
	}

	return s.toResponse(&record), nil
}

// Approve marks the unit+tenant application approved. Sibling applications
// for the same unit stay pending; the landlord decides each one explicitly.
func (s *Service) Approve(ctx context.Context, req domain.ApproveRequest) (*domain.Response, error) {
	unitID, err := domain.ParseID(strings.TrimSpace(req.UnitID))
	if err != nil || unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}
	tenantID, err := domain.ParseID(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	record, err := s.repo.FindLive(ctx, s.db, unitID, tenantID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	if record.Status == domain.ApplicationStatusApproved {
		return s.toResponse(record), nil
	}

	if err := s.repo.UpdateStatus(ctx, s.db, record.ID, domain.ApplicationStatusApproved); err != nil {
		return nil, err
	}
	record.Status = domain.ApplicationStatusApproved
	record.UpdatedAt = time.Now().UTC()

	if s.sink != nil {
		s.sink.Notify(ctx, record.TenantID, "Application approved",
			"Your rental application has been approved. The landlord will prepare your lease agreement.")
	}

	return s.toResponse(record), nil
}

func (s *Service) GetApprovedTenant(ctx context.Context, unitID snowflake.ID) (*domain.ApprovedTenant, error) {
	if unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}
	record, err := s.repo.FindApprovedByUnit(ctx, s.db, unitID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNoApproved
	}
	return &domain.ApprovedTenant{
		ApplicationID:    record.ID,
		TenantID:         record.TenantID,
		IdentityDocument: s.vault.DecryptOrRedact(record.IdentityDocument),
		IncomeDocument:   s.vault.DecryptOrRedact(record.IncomeDocument),
	}, nil
}

func (s *Service) ListByUnit(ctx context.Context, unitID snowflake.ID) ([]domain.Response, error) {
	if unitID == 0 {
		return nil, domain.ErrInvalidUnit
	}
	records, err := s.repo.ListByUnit(ctx, s.db, unitID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Response, 0, len(records))
	for i := range records {
		out = append(out, *s.toResponse(&records[i]))
	}
	return out, nil
}

func (s *Service) sealDocument(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", nil
	}
	sealed, err := s.vault.Encrypt(url)
	if err != nil {
		s.log.Error("seal document reference", zap.Error(err))
		return "", err
	}
	return sealed, nil
}

func (s *Service) toResponse(record *domain.ProspectiveTenant) *domain.Response {
	return &domain.Response{
		ID:               record.ID.String(),
		TenantID:         record.TenantID.String(),
		UnitID:           record.UnitID.String(),
		Status:           record.Status,
		IdentityDocument: s.vault.DecryptOrRedact(record.IdentityDocument),
		IncomeDocument:   s.vault.DecryptOrRedact(record.IncomeDocument),
		Message:          record.Message,
		Superseded:       record.Superseded,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}
