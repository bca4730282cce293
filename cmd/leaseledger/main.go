package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/leaseledger/leaseledger/internal/application"
	"github.com/leaseledger/leaseledger/internal/billing"
	"github.com/leaseledger/leaseledger/internal/config"
	"github.com/leaseledger/leaseledger/internal/lease"
	"github.com/leaseledger/leaseledger/internal/logger"
	"github.com/leaseledger/leaseledger/internal/meter"
	"github.com/leaseledger/leaseledger/internal/metrics"
	"github.com/leaseledger/leaseledger/internal/migration"
	"github.com/leaseledger/leaseledger/internal/notify"
	"github.com/leaseledger/leaseledger/internal/payment"
	"github.com/leaseledger/leaseledger/internal/server"
	"github.com/leaseledger/leaseledger/internal/storage"
	"github.com/leaseledger/leaseledger/internal/vault"
	"github.com/leaseledger/leaseledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,
		vault.Module,
		storage.Module,
		notify.Module,

		// Functional domains
		application.Module,
		lease.Module,
		payment.Module,
		billing.Module,
		meter.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
