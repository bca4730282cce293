package billing

import (
	"github.com/leaseledger/leaseledger/internal/billing/domain"
	"github.com/leaseledger/leaseledger/internal/billing/repository"
	"github.com/leaseledger/leaseledger/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
