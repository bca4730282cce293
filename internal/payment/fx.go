package payment

import (
	"github.com/leaseledger/leaseledger/internal/config"
	"github.com/leaseledger/leaseledger/internal/payment/domain"
	"github.com/leaseledger/leaseledger/internal/payment/gateway"
	"github.com/leaseledger/leaseledger/internal/payment/repository"
	"github.com/leaseledger/leaseledger/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) domain.Gateway {
		return gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey)
	}),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
