// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	appctx "storeops/internal/core/context"
	"storeops/internal/domain/order"
	"storeops/internal/domain/payment"
	"storeops/internal/domain/promotion"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/domain/returns"
	"storeops/internal/domain/settings"
	"storeops/internal/domain/shipping"
	"storeops/internal/infrastructure/http/v1/handlers"
	"storeops/internal/infrastructure/http/v1/middleware"
	"storeops/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator
	DB           handlers.Pinger
	Version      string

	// Idempotency is optional; without it X-Idempotency-Key is ignored.
	Idempotency middleware.IdempotencyStore

	Orders     *order.Service
	Returns    *returns.Service
	Shipping   *shipping.Service
	Payments   *payment.Reconciler
	Promotions *promotion.Engine
	Stock      *stock.Service
	Settings   *settings.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Span())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")

	// Provider callbacks authenticate by signature, not by token.
	webhookHandler := handlers.NewWebhookHandler(cfg.Payments, cfg.Shipping)
	v1.POST("/payments/payos/webhook", webhookHandler.PayOS)
	v1.POST("/ghn/webhook", webhookHandler.GHN)

	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		protected.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerOrderRoutes(protected, base, cfg)
	registerReturnRoutes(protected, base, cfg)
	registerPromotionRoutes(protected, base, cfg)
	registerStockRoutes(protected, base, cfg)
	registerSettingsRoutes(protected, base, cfg)

	return router
}

var (
	customerOnly = middleware.RequireRole(appctx.RoleCustomer)
	staffOnly    = middleware.RequireRole(appctx.RoleStaff)
	adminOnly    = middleware.RequireRole(appctx.RoleAdmin)
	anyRole      = middleware.RequireRole(appctx.RoleCustomer, appctx.RoleStaff)
)

func registerOrderRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	orders := rg.Group("/orders")
	h := handlers.NewOrderHandler(base, cfg.Orders)
	sh := handlers.NewShipmentHandler(base, cfg.Shipping)
	rh := handlers.NewReturnHandler(base, cfg.Returns)

	orders.POST("/checkout", customerOnly, h.Checkout)
	orders.POST("/buy-now", customerOnly, h.BuyNow)
	orders.POST("", staffOnly, h.Create)
	orders.GET("", anyRole, h.List)
	orders.GET("/:id", anyRole, h.Get)
	orders.POST("/:id/cancel", anyRole, h.Cancel)
	orders.POST("/:id/confirm", staffOnly, h.Confirm)
	orders.POST("/:id/payment-link", anyRole, h.AttachPaymentLink)

	orders.POST("/:id/shipment", staffOnly, sh.Register)
	orders.GET("/:id/shipment", anyRole, sh.GetByOrder)

	orders.POST("/:id/returns", customerOnly, rh.RequestReturn)
	orders.POST("/:id/exchanges", customerOnly, rh.RequestExchange)
}

func registerReturnRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	group := rg.Group("/returns")
	h := handlers.NewReturnHandler(base, cfg.Returns)

	group.GET("", staffOnly, h.List)
	group.GET("/mine", customerOnly, h.ListMine)
	group.GET("/:id", anyRole, h.Get)
	group.POST("/:id/approve", staffOnly, h.Approve)
	group.POST("/:id/reject", staffOnly, h.Reject)
	group.POST("/:id/complete", staffOnly, h.Complete)
}

func registerPromotionRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewPromotionHandler(base, cfg.Promotions)

	promotions := rg.Group("/promotions")
	promotions.POST("/validate", anyRole, h.Validate)
	promotions.POST("", adminOnly, h.CreatePromotion)
	promotions.GET("", adminOnly, h.ListPromotions)
	promotions.PATCH("/:id/active", adminOnly, h.SetPromotionActive)

	rules := rg.Group("/promotion-rules")
	rules.POST("", adminOnly, h.CreateRule)
	rules.GET("", adminOnly, h.ListRules)
	rules.PATCH("/:id/active", adminOnly, h.SetRuleActive)
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	group := rg.Group("/stock")
	h := handlers.NewStockHandler(base, cfg.Stock)

	group.GET("/ledger", staffOnly, h.Ledger)
	group.POST("/movements", staffOnly, h.Record)
	group.GET("/drift", staffOnly, h.Drift)
}

func registerSettingsRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	group := rg.Group("/settings")
	h := handlers.NewSettingsHandler(base, cfg.Settings)

	group.GET("", staffOnly, h.Get)
	group.PUT("", adminOnly, h.Update)
}
