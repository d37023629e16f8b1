package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/config"
	handlers "github.com/ordergrid/ordergrid/internal/http/api/admin/handlers"
	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/security"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	planHandler := handlers.NewPlanHandler(db)
	authed.POST("/plans", planHandler.Create)
	authed.GET("/plans", planHandler.List)
	authed.GET("/plans/:id", planHandler.Get)
	authed.PUT("/plans/:id", planHandler.Update)
	authed.DELETE("/plans/:id", planHandler.Delete)
	authed.POST("/plans/:id/enable", planHandler.Enable)
	authed.POST("/plans/:id/disable", planHandler.Disable)

	locationHandler := handlers.NewLocationHandler(db)
	authed.POST("/locations", locationHandler.Create)
	authed.GET("/locations", locationHandler.List)
	authed.GET("/locations/:id", locationHandler.Get)
	authed.PUT("/locations/:id", locationHandler.Update)
	authed.DELETE("/locations/:id", locationHandler.Delete)
	authed.POST("/locations/:id/activate", locationHandler.Activate)
	authed.POST("/locations/:id/deactivate", locationHandler.Deactivate)

	businessHandler := handlers.NewBusinessHandler(db)
	authed.POST("/businesses", businessHandler.Create)
	authed.GET("/businesses", businessHandler.List)
	authed.GET("/businesses/:id", businessHandler.Get)
	authed.PUT("/businesses/:id", businessHandler.Update)
	authed.DELETE("/businesses/:id", businessHandler.Delete)
	authed.POST("/businesses/:id/disable", businessHandler.Disable)
	authed.POST("/businesses/:id/enable", businessHandler.Enable)
	authed.PUT("/businesses/:id/password", businessHandler.ChangePassword)
	authed.POST("/businesses/:id/usage/reset", locationHandler.ResetUsage)

	orderHandler := handlers.NewOrderHandler(db)
	authed.GET("/orders", orderHandler.List)
	authed.POST("/orders", orderHandler.Create)

	invoiceHandler := handlers.NewInvoiceHandler(db)
	authed.GET("/invoices", invoiceHandler.List)
	authed.GET("/invoices/:id", invoiceHandler.Get)
	authed.POST("/invoices", invoiceHandler.Generate)
	authed.PUT("/invoices/:id/status", invoiceHandler.UpdateStatus)

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}
