package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
	auditdomain "github.com/smallbiznis/cardwatch/internal/audit/domain"
	checkerdomain "github.com/smallbiznis/cardwatch/internal/checker/domain"
	"github.com/smallbiznis/cardwatch/internal/config"
	"github.com/smallbiznis/cardwatch/internal/observability"
	obsmiddleware "github.com/smallbiznis/cardwatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/cardwatch/internal/observability/metrics"
	obstracing "github.com/smallbiznis/cardwatch/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/cardwatch/internal/providers/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine          *gin.Engine
	cfg             config.Config
	checkerSvc      checkerdomain.Service
	accountSvc      accountdomain.Service
	auditSvc        auditdomain.Service
	paymentProvider paymentdomain.Provider
	obsMetrics      *obsmetrics.Metrics
	log             *zap.Logger

	checkLimiter   *rateLimiter
	upgradeLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	CheckerSvc      checkerdomain.Service
	AccountSvc      accountdomain.Service
	AuditSvc        auditdomain.Service
	PaymentProvider paymentdomain.Provider
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
	Log             *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		checkerSvc:      p.CheckerSvc,
		accountSvc:      p.AccountSvc,
		auditSvc:        p.AuditSvc,
		paymentProvider: p.PaymentProvider,
		obsMetrics:      p.ObsMetrics,
		log:             p.Log.Named("http.server"),
		checkLimiter:    newRateLimiter(60, time.Minute),
		upgradeLimiter:  newRateLimiter(5, time.Minute),
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Card checks --------
	api.POST("/check-cards", s.ClientRateLimit(s.checkLimiter), s.CheckCards)
	api.GET("/check-cards", s.ClientRateLimit(s.checkLimiter), s.CheckCardsQuery)

	// -------- Accounts --------
	api.GET("/accounts/:external_id", s.GetAccount)
	api.POST("/accounts/:external_id/upgrade", s.ClientRateLimit(s.upgradeLimiter), s.UpgradeAccount)
	api.GET("/accounts/:external_id/history", s.GetHistory)

	// -------- Payments --------
	api.POST("/payments/confirm", s.ClientRateLimit(s.upgradeLimiter), s.ConfirmPayment)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.GET("/accounts", s.ListAccounts)
	admin.GET("/checks", s.ListChecks)
}
