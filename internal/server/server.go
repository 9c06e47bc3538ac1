package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/revenue/internal/account"
	"github.com/smallbiznis/revenue/internal/audit"
	auditdomain "github.com/smallbiznis/revenue/internal/audit/domain"
	"github.com/smallbiznis/revenue/internal/authorization"
	"github.com/smallbiznis/revenue/internal/bill"
	"github.com/smallbiznis/revenue/internal/config"
	"github.com/smallbiznis/revenue/internal/ledger"
	"github.com/smallbiznis/revenue/internal/lock"
	"github.com/smallbiznis/revenue/internal/observability"
	obslogger "github.com/smallbiznis/revenue/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/revenue/internal/observability/metrics"
	obstracing "github.com/smallbiznis/revenue/internal/observability/tracing"
	"github.com/smallbiznis/revenue/internal/payment"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/internal/reference"
	"github.com/smallbiznis/revenue/internal/resolver"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	account.Module,
	bill.Module,
	resolver.Module,
	reference.Module,
	lock.Module,
	audit.Module,
	authorization.Module,
	ledger.Module,
	payment.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	paymentSvc   paymentdomain.Service
	paymentQuery paymentdomain.QueryService
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	PaymentSvc   paymentdomain.Service
	PaymentQuery paymentdomain.QueryService
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		paymentSvc:   p.PaymentSvc,
		paymentQuery: p.PaymentQuery,
	}
}

// RegisterRoutes mounts the payment and audit API under /api. Every route
// needs an actor and the matching capability.
func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")
	api.Use(ActorContext())

	payments := api.Group("/payments")
	payments.POST("", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.SubmitPayment)
	payments.GET("", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)
	payments.GET("/stats", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.PaymentStats)
	payments.GET("/:reference", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPayment)

	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func registerRoutes(s *Server) {
	s.RegisterRoutes()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
