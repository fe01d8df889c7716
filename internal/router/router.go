// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/neuralnex/legionx-backend/internal/config"
	"github.com/neuralnex/legionx-backend/internal/handlers"
	"github.com/neuralnex/legionx-backend/internal/middleware"
	"github.com/neuralnex/legionx-backend/internal/services"
)

type Services struct {
	Auth           *services.AuthService
	Agents         *services.AgentService
	Listings       *services.ListingService
	Entitlements   *services.EntitlementService
	Reconciliation *services.ReconciliationService
	Fees           *services.FeeService
	Alerts         *services.AlertService
	Storage        *services.StorageService
}

func Setup(db *gorm.DB, cfg *config.Config, svcs *Services) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.AuditLogMiddleware(db))

	authHandler := handlers.NewAuthHandler(svcs.Auth)
	agentHandler := handlers.NewAgentHandler(svcs.Agents)
	listingHandler := handlers.NewListingHandler(svcs.Listings)
	purchaseHandler := handlers.NewPurchaseHandler(svcs.Reconciliation)
	webhookHandler := handlers.NewWebhookHandler(svcs.Reconciliation)
	accessHandler := handlers.NewAccessHandler(svcs.Entitlements, svcs.Agents, svcs.Storage)
	statsHandler := handlers.NewStatsHandler(db, svcs.Fees, svcs.Alerts)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(middleware.GeneralRateLimit())

	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimit())
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
	}

	agents := v1.Group("/agents")
	agents.Use(middleware.AuthRequired())
	{
		agents.POST("", agentHandler.Create)
		agents.GET("", agentHandler.ListMine)
		agents.GET("/:id", agentHandler.Get)
		agents.PUT("/:id", agentHandler.Update)
	}

	listings := v1.Group("/listings")
	{
		// Public browse; a bearer token, when present, still attributes
		// the request in audit logs.
		listings.GET("", middleware.OptionalAuth(), listingHandler.List)
		listings.GET("/:id", middleware.OptionalAuth(), listingHandler.Get)
		listings.POST("", middleware.AuthRequired(), listingHandler.Create)
		listings.PUT("/:id", middleware.AuthRequired(), listingHandler.Edit)
		listings.DELETE("/:id", middleware.AuthRequired(), listingHandler.Delist)
	}

	purchases := v1.Group("/purchases")
	purchases.Use(middleware.AuthRequired())
	{
		purchases.POST("", purchaseHandler.Create)
		purchases.GET("", purchaseHandler.List)
		purchases.GET("/:id", purchaseHandler.Get)
		purchases.POST("/:id/cancel", purchaseHandler.Cancel)
	}

	v1.POST("/settlements/chain", middleware.AuthRequired(), purchaseHandler.SettleChain)

	// Authenticated by signature, not JWT.
	v1.POST("/webhooks/stripe", middleware.WebhookRateLimit(), webhookHandler.Stripe)

	access := v1.Group("/access")
	access.Use(middleware.AuthRequired())
	{
		access.GET("", accessHandler.ListEntitlements)
		access.GET("/:subjectID", accessHandler.Check)
		access.POST("/:subjectID/credential", accessHandler.Credential)
	}

	stats := v1.Group("/stats")
	stats.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		stats.GET("/platform", statsHandler.Platform)
		stats.GET("/fees", statsHandler.Fees)
		stats.GET("/alerts", statsHandler.Alerts)
	}

	return r
}
