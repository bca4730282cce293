package application

import (
	"github.com/leaseledger/leaseledger/internal/application/domain"
	"github.com/leaseledger/leaseledger/internal/application/repository"
	"github.com/leaseledger/leaseledger/internal/application/service"
	"go.uber.org/fx"
)

var Module = fx.Module("application.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
