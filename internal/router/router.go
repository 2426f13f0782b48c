package router

import (
	"time"

	"memberly/config"
	"memberly/internal/handler"
	"memberly/internal/middleware"
	"memberly/internal/repository"
	"memberly/internal/service"
	"memberly/pkg/payment"
	"memberly/pkg/secrets"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers and returns the engine plus
// the sweeper so main controls its lifecycle.
func Setup(cfg *config.Config, db *gorm.DB, box *secrets.Box, notifier service.Notifier) (*gin.Engine, *service.Sweeper) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(300, 60*time.Second)))

	// Repositories
	creatorRepo := repository.NewCreatorRepository(db)
	planRepo := repository.NewPlanRepository(db)
	accountRepo := repository.NewGatewayAccountRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// One adapter per provider, registered once and injected everywhere.
	registry := payment.NewRegistry(
		payment.NewMercadoPagoGateway(cfg.Gateways.MercadoPagoBaseURL),
		payment.NewStripeGateway(),
		payment.NewPushinPayGateway(cfg.Gateways.PushinPayBaseURL),
		payment.NewAsaasGateway(cfg.Gateways.AsaasBaseURL),
		payment.NewPayPalGateway(cfg.Gateways.PayPalBaseURL),
		payment.NewOpenPixGateway(cfg.Gateways.OpenPixBaseURL),
	)

	// Services
	fallbackFee := service.MustFee(cfg.Payment.FallbackFee)
	feeSvc := service.NewFeeService(settingRepo, fallbackFee, cfg.Payment.FeeCacheTTL)
	accountSvc := service.NewAccountService(accountRepo, box)
	checkoutSvc := service.NewCheckoutService(db, registry, feeSvc, planRepo, creatorRepo, accountSvc,
		cfg.Payment.ProviderTimeout, cfg.Payment.WebhookBaseURL)
	reconcileSvc := service.NewReconcileService(subRepo, txRepo, auditRepo, notifier)
	subSvc := service.NewSubscriptionService(subRepo, registry, accountSvc, auditRepo)
	sweeper := service.NewSweeper(subRepo, notifier,
		cfg.Sweeper.ExpireSchedule, cfg.Sweeper.RemindSchedule, cfg.Sweeper.RemindDays)

	// Handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	webhookHandler := handler.NewWebhookHandler(registry, accountSvc, reconcileSvc)
	subHandler := handler.NewSubscriptionHandler(subRepo, txRepo, subSvc)
	planHandler := handler.NewPlanHandler(planRepo)

	api := r.Group("/api/v1")
	{
		api.POST("/checkout", checkoutHandler.Create)
		api.POST("/webhooks/:gateway/:creator_id", webhookHandler.Handle)
		api.GET("/creators/:creator_id/plans", planHandler.List)
		api.GET("/creators/:creator_id/subscriptions", subHandler.ListByCreator)
		api.GET("/subscriptions/:id", subHandler.Get)
		api.POST("/subscriptions/:id/cancel", subHandler.Cancel)
	}
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	return r, sweeper
}
