package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stonebridge/membergate/internal/access"
	accessdomain "github.com/stonebridge/membergate/internal/access/domain"
	"github.com/stonebridge/membergate/internal/config"
	"github.com/stonebridge/membergate/internal/observability"
	obsmiddleware "github.com/stonebridge/membergate/internal/observability/logger"
	obsmetrics "github.com/stonebridge/membergate/internal/observability/metrics"
	obstracing "github.com/stonebridge/membergate/internal/observability/tracing"
	"github.com/stonebridge/membergate/internal/payment"
	paymentdomain "github.com/stonebridge/membergate/internal/payment/domain"
	"github.com/stonebridge/membergate/internal/ratelimit"
	"github.com/stonebridge/membergate/internal/videocontent"
	videodomain "github.com/stonebridge/membergate/internal/videocontent/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	payment.Module,
	access.Module,
	videocontent.Module,
	ratelimit.Module,
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine        *gin.Engine
	cfg           config.Config
	paymentSvc    paymentdomain.Service
	webhookSvc    paymentdomain.WebhookService
	accessSvc     accessdomain.Service
	videoSvc      videodomain.Service
	verifyLimiter *ratelimit.VerifyLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	PaymentSvc    paymentdomain.Service
	WebhookSvc    paymentdomain.WebhookService
	AccessSvc     accessdomain.Service
	VideoSvc      videodomain.Service
	VerifyLimiter *ratelimit.VerifyLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		paymentSvc:    p.PaymentSvc,
		webhookSvc:    p.WebhookSvc,
		accessSvc:     p.AccessSvc,
		videoSvc:      p.VideoSvc,
		verifyLimiter: p.VerifyLimiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerCheckoutRoutes()
	svc.registerPaymentRoutes()
	svc.registerAccessRoutes()
	svc.registerWebhookRoutes()
	svc.registerContentRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerCheckoutRoutes() {
	checkout := s.engine.Group("/checkout")

	checkout.POST("/session", s.CreateCheckoutSession)
	checkout.POST("/session-deferred", s.CreateDeferredCheckoutSession)
}

func (s *Server) registerPaymentRoutes() {
	s.engine.POST("/payments/sync", s.SyncPaymentStatus)
}

func (s *Server) registerAccessRoutes() {
	s.engine.POST("/access/verify", s.VerifyRateLimit(), s.VerifyAccess)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerContentRoutes() {
	s.engine.GET("/content/videos", s.ListVideos)
	s.engine.PUT("/admin/videos/:slug", s.UpsertVideo)
}
