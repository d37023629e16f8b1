package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/config"
	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/security"
)

// AuthFrontHandler manages business authentication endpoints.
type AuthFrontHandler struct {
	db  *gorm.DB
	jwt config.JWTConfig
}

// NewAuthFrontHandler constructs an AuthFrontHandler.
func NewAuthFrontHandler(db *gorm.DB, jwt config.JWTConfig) *AuthFrontHandler {
	return &AuthFrontHandler{db: db, jwt: jwt}
}

type businessLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a business and returns a signed token.
func (h *AuthFrontHandler) Login(c *gin.Context) {
	var req businessLoginRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	username := strings.TrimSpace(req.Username)
	var business models.Business
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).
		Take(&business).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}
	if !business.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}
	if !security.CheckPassword(business.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errToken := security.CreateBusinessToken(h.jwt.Secret, business.ID, business.Username, h.jwt.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"business": gin.H{
			"id":       business.ID,
			"username": business.Username,
			"name":     business.Name,
		},
	})
}

// Profile returns the authenticated business's account details.
func (h *AuthFrontHandler) Profile(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var business models.Business
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Plan").
		First(&business, businessID).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}

	out := gin.H{
		"id":             business.ID,
		"username":       business.Username,
		"name":           business.Name,
		"email":          business.Email,
		"plan_id":        business.PlanID,
		"yearly_billing": business.YearlyBilling,
		"created_at":     business.CreatedAt,
	}
	if business.Plan != nil {
		out["plan"] = gin.H{
			"id":             business.Plan.ID,
			"name":           business.Plan.Name,
			"month_price":    business.Plan.MonthPrice,
			"year_price":     business.Plan.YearPrice,
			"location_limit": business.Plan.LocationLimit,
		}
	}
	c.JSON(http.StatusOK, out)
}
