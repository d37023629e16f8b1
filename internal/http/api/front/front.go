package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/config"
	handlers "github.com/ordergrid/ordergrid/internal/http/api/front/handlers"
	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/ratelimit"
	"github.com/ordergrid/ordergrid/internal/security"
)

// RegisterFrontRoutes registers business-facing routes, middleware, and
// handlers.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig) {
	if r == nil || db == nil {
		return
	}

	frontGroup := r.Group("/v0")

	authHandler := handlers.NewAuthFrontHandler(db, jwtCfg)
	frontGroup.POST("/login", authHandler.Login)

	planHandler := handlers.NewPlanFrontHandler(db)
	frontGroup.GET("/plans", planHandler.List)

	authed := frontGroup.Group("")
	authed.Use(businessAuthMiddleware(db, jwtCfg))

	authed.GET("/profile", authHandler.Profile)

	locationHandler := handlers.NewLocationFrontHandler(db)
	authed.POST("/locations", locationHandler.Create)
	authed.GET("/locations", locationHandler.List)
	authed.GET("/locations/:id", locationHandler.Get)
	authed.PUT("/locations/:id", locationHandler.Update)
	authed.POST("/locations/:id/activate", locationHandler.Activate)
	authed.POST("/locations/:id/deactivate", locationHandler.Deactivate)
	authed.POST("/locations/:id/qr", locationHandler.RegenerateQR)

	limiter := ratelimit.NewManager(nil, nil, nil)
	orderHandler := handlers.NewOrderFrontHandler(db)
	authed.POST("/orders", orderRateLimitMiddleware(db, limiter), orderHandler.Place)
	authed.GET("/orders", orderHandler.List)
	authed.PUT("/orders/:id/status", orderHandler.UpdateStatus)

	billingHandler := handlers.NewBillingFrontHandler(db)
	authed.GET("/billing/preview", billingHandler.Preview)
	authed.GET("/billing/limits", billingHandler.Limits)
	authed.GET("/billing/proration", billingHandler.Proration)
	authed.GET("/billing/usage-report", billingHandler.UsageReport)
	authed.GET("/invoices", billingHandler.Invoices)
	authed.POST("/invoices", billingHandler.GenerateInvoice)
}

// businessAuthMiddleware validates business JWTs and loads business
// context.
func businessAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseBusinessToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var business models.Business
		if errFind := db.WithContext(c.Request.Context()).First(&business, claims.BusinessID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "business not found"})
			return
		}
		if !business.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set("businessID", business.ID)
		c.Set("businessUsername", business.Username)
		c.Next()
	}
}

// orderRateLimitMiddleware enforces the per-second order placement limit
// for the authenticated business. A zero resolved limit disables the
// check.
func orderRateLimitMiddleware(db *gorm.DB, limiter *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get("businessID")
		if !ok {
			c.Next()
			return
		}
		businessID, ok := value.(uint64)
		if !ok || businessID == 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		decision, errResolve := ratelimit.ResolveLimit(ctx, db, businessID)
		if errResolve != nil || decision.Limit <= 0 {
			c.Next()
			return
		}

		key := ratelimit.KeyForDecision(businessID, decision)
		if key == "" {
			c.Next()
			return
		}

		result, errAllow := limiter.Allow(ctx, key, decision.Limit)
		if errAllow != nil {
			c.Next()
			return
		}
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
