package meter

import (
	"github.com/leaseledger/leaseledger/internal/meter/domain"
	"github.com/leaseledger/leaseledger/internal/meter/repository"
	"github.com/leaseledger/leaseledger/internal/meter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meter.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
