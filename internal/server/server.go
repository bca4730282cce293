package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	applicationdomain "github.com/leaseledger/leaseledger/internal/application/domain"
	billingdomain "github.com/leaseledger/leaseledger/internal/billing/domain"
	"github.com/leaseledger/leaseledger/internal/config"
	leasedomain "github.com/leaseledger/leaseledger/internal/lease/domain"
	meterdomain "github.com/leaseledger/leaseledger/internal/meter/domain"
	paymentdomain "github.com/leaseledger/leaseledger/internal/payment/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	applicationSvc applicationdomain.Service
	leaseSvc       leasedomain.Service
	paymentSvc     paymentdomain.Service
	billingSvc     billingdomain.Service
	meterSvc       meterdomain.Service
	registry       *prometheus.Registry
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	ApplicationSvc applicationdomain.Service
	LeaseSvc       leasedomain.Service
	PaymentSvc     paymentdomain.Service
	BillingSvc     billingdomain.Service
	MeterSvc       meterdomain.Service
	Registry       *prometheus.Registry `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		applicationSvc: p.ApplicationSvc,
		leaseSvc:       p.LeaseSvc,
		paymentSvc:     p.PaymentSvc,
		billingSvc:     p.BillingSvc,
		meterSvc:       p.MeterSvc,
		registry:       p.Registry,
	}
}

func registerRoutes(s *Server) {
	r := s.engine

	r.GET("/healthz", s.Healthz)
	if s.registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	api.POST("/applications", s.SubmitApplication)
	api.GET("/units/:id/applications", s.ListApplications)
	api.POST("/units/:id/applications/approve", s.ApproveApplication)

	api.POST("/units/:id/lease", s.CreateLease)
	api.GET("/units/:id/lease", s.GetLease)
	api.PUT("/units/:id/lease/document", s.AttachLeaseDocument)
	api.PUT("/units/:id/lease/dates", s.SetLeaseDates)
	api.POST("/units/:id/lease/terminate", s.TerminateLease)
	api.DELETE("/units/:id/lease", s.DeleteLease)

	api.POST("/payments/checkout", s.InitiatePayment)
	api.GET("/payments/confirm", s.ConfirmPayment)
	api.GET("/payments/cancel", s.CancelPayment)
	api.GET("/agreements/:id/payments", s.ListAgreementPayments)

	api.POST("/units/:id/readings", s.RecordMeterReading)
	api.GET("/units/:id/readings", s.ListMeterReadings)

	api.GET("/units/:id/bill", s.GetCurrentBill)
	api.PATCH("/billing/:id", s.CorrectBilling)
	api.POST("/billing/:id/payments", s.ApplyBillingPayment)
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
