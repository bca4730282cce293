package storage

import (
	"github.com/leaseledger/leaseledger/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("storage",
	fx.Provide(func(cfg config.Config) (Store, error) {
		return NewLocalStore(cfg.DocumentDir)
	}),
)
