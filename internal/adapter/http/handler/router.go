package handler

import (
	"net/http"

	"ebook-marketplace/internal/adapter/http/middleware"
	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SettlementSvc   ports.SettlementService
	CredentialSvc   ports.CredentialService
	AdminSvc        ports.UserAdminService
	Evaluator       ports.PermissionEvaluator
	Capabilities    *domain.Capabilities
	TokenSvc        ports.TokenService
	UserRepo        ports.UserRepository
	RateLimiter     ports.RateLimiter // nil = rate limiting disabled
	CheckoutPerHour int64
	HealthCheckers  []ports.HealthChecker
	AuditSvc        ports.AuditService // nil = audit logging disabled
	Metrics         http.Handler       // nil = no /metrics endpoint
	Docs            *APIDocs           // nil = no /swagger endpoints
	Mode            string             // gin mode; empty keeps the current one
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(middleware.MaxRequestBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	if deps.Docs != nil {
		swagger := r.Group("/swagger")
		{
			swagger.GET("", deps.Docs.UI)
			swagger.GET("/spec", deps.Docs.Spec)
		}
	}

	// can wraps the evaluator for one (resource, action) pair.
	can := func(resource domain.Resource, action domain.Action) gin.HandlerFunc {
		return middleware.Authorize(deps.Evaluator, deps.AuditSvc, resource, action)
	}

	checkoutLimit := func(c *gin.Context) { c.Next() }
	if deps.RateLimiter != nil {
		checkoutLimit = middleware.RateLimiter(deps.RateLimiter, "checkout",
			middleware.CheckoutRule(deps.CheckoutPerHour), deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.UserRepo, deps.Logger)
	paymentHandler := NewPaymentHandler(deps.SettlementSvc)

	// --- Processor callbacks (signature-authenticated) ---
	v1.GET("/payments/webhook", paymentHandler.WebhookProbe)
	v1.POST("/payments/webhook", paymentHandler.Webhook)

	// --- JWT-authenticated routes ---
	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("/checkout",
			can(domain.ResourcePurchases, domain.ActionCreate), checkoutLimit, paymentHandler.Checkout)
		payments.GET("/transactions/:reference",
			can(domain.ResourceTransactions, domain.ActionRead), paymentHandler.GetTransaction)
		payments.POST("/transactions/:reference/refresh",
			can(domain.ResourceTransactions, domain.ActionRead), paymentHandler.RefreshTransaction)

		merchantHandler := NewMerchantHandler(deps.CredentialSvc)
		payments.GET("/config", can(domain.ResourcePaymentConfig, domain.ActionRead), merchantHandler.GetConfig)
		payments.POST("/config", can(domain.ResourcePaymentConfig, domain.ActionUpdate), merchantHandler.SaveConfig)
		payments.POST("/config/test", can(domain.ResourcePaymentConfig, domain.ActionRead), merchantHandler.TestConfig)
		payments.DELETE("/config", can(domain.ResourcePaymentConfig, domain.ActionDelete), merchantHandler.DeleteConfig)
	}

	userHandler := NewUserHandler(deps.SettlementSvc, deps.Capabilities)
	v1.GET("/library", jwtAuth, can(domain.ResourcePurchases, domain.ActionRead), userHandler.Library)
	v1.GET("/profile", jwtAuth, can(domain.ResourceProfile, domain.ActionRead), userHandler.Profile)

	adminHandler := NewAdminHandler(deps.AdminSvc)
	admin := v1.Group("/admin/users", jwtAuth, can(domain.ResourceUsers, domain.ActionUpdate))
	{
		admin.PATCH("/:id/approve", adminHandler.Approve)
		admin.PATCH("/:id/reject", adminHandler.Reject)
		admin.PATCH("/:id/suspend", adminHandler.Suspend)
		admin.PATCH("/:id/role", adminHandler.ChangeRole)
	}

	return r
}
