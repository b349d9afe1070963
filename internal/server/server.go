package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naijatax/taxguide/internal/ask"
	askdomain "github.com/naijatax/taxguide/internal/ask/domain"
	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/config"
	"github.com/naijatax/taxguide/internal/credit"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	"github.com/naijatax/taxguide/internal/observability"
	"github.com/naijatax/taxguide/internal/observability/metrics"
	"github.com/naijatax/taxguide/internal/payment"
	paymentdomain "github.com/naijatax/taxguide/internal/payment/domain"
	"github.com/naijatax/taxguide/internal/plan"
	plandomain "github.com/naijatax/taxguide/internal/plan/domain"
	"github.com/naijatax/taxguide/internal/providers/ai"
	"github.com/naijatax/taxguide/internal/qa"
	"github.com/naijatax/taxguide/internal/ratelimit"
	"github.com/naijatax/taxguide/internal/subscription"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	"github.com/naijatax/taxguide/internal/translation"
	"github.com/naijatax/taxguide/internal/usage"
	usagedomain "github.com/naijatax/taxguide/internal/usage/domain"
	"github.com/naijatax/taxguide/pkg/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	log.Module,
	observability.Module,
	fx.Provide(registerGin),
	clock.Module,
	ai.Module,
	qa.Module,
	credit.Module,
	usage.Module,
	subscription.Module,
	translation.Module,
	ask.Module,
	plan.Module,
	payment.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(MetricsMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	return r
}

func registerGin(m *metrics.Metrics) *gin.Engine {
	return NewEngine(m)
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
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB

	askSvc          askdomain.Service
	subscriptionSvc subscriptiondomain.Service
	creditSvc       creditdomain.Service
	usageSvc        usagedomain.Service
	planSvc         plandomain.Service
	paymentSvc      paymentdomain.Service
	plans           *config.PlanCatalogHolder

	obsMetrics *metrics.Metrics
	askLimiter *ratelimit.AskLimiter
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	Log *zap.Logger
	DB  *gorm.DB

	AskSvc          askdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	CreditSvc       creditdomain.Service
	UsageSvc        usagedomain.Service
	PlanSvc         plandomain.Service
	PaymentSvc      paymentdomain.Service
	Plans           *config.PlanCatalogHolder

	ObsMetrics *metrics.Metrics      `optional:"true"`
	AskLimiter *ratelimit.AskLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		db:              p.DB,
		askSvc:          p.AskSvc,
		subscriptionSvc: p.SubscriptionSvc,
		creditSvc:       p.CreditSvc,
		usageSvc:        p.UsageSvc,
		planSvc:         p.PlanSvc,
		paymentSvc:      p.PaymentSvc,
		plans:           p.Plans,
		obsMetrics:      p.ObsMetrics,
		askLimiter:      p.AskLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/ask", s.HandleAsk)
	v1.GET("/plans", s.ListPlans)
	v1.GET("/subscriptions/:account_id/status", s.SubscriptionStatus)
	v1.POST("/subscriptions/:account_id/trial", s.StartTrial)
	v1.GET("/credits/:account_id", s.CreditBalance)
	v1.GET("/usage/:account_id", s.DailyUsage)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin/v1", s.AdminRequired())

	admin.POST("/subscriptions/:account_id/activate", s.ActivatePlan)
	admin.POST("/subscriptions/:account_id/schedule", s.SchedulePlan)
	admin.POST("/subscriptions/:account_id/cancel", s.CancelSubscription)
	admin.POST("/credits/:account_id/grant", s.GrantCredits)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/paystack", s.HandlePaystackWebhook)
}
