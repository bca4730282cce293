package lease

import (
	"github.com/leaseledger/leaseledger/internal/lease/domain"
	"github.com/leaseledger/leaseledger/internal/lease/repository"
	"github.com/leaseledger/leaseledger/internal/lease/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lease.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
