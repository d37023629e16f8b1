package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/ordergrid/ordergrid/internal/db"
	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/security"
)

// BusinessHandler manages tenant account endpoints.
type BusinessHandler struct {
	db *gorm.DB
}

// NewBusinessHandler constructs a BusinessHandler.
func NewBusinessHandler(db *gorm.DB) *BusinessHandler {
	return &BusinessHandler{db: db}
}

// createBusinessRequest defines the request body for business creation.
type createBusinessRequest struct {
	Username      string  `json:"username"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	PlanID        *uint64 `json:"plan_id"`
	YearlyBilling bool    `json:"yearly_billing"`
	RateLimit     int     `json:"rate_limit"`
}

// Create creates a new business account.
func (h *BusinessHandler) Create(c *gin.Context) {
	var body createBusinessRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}

	ctx := c.Request.Context()
	if body.PlanID != nil && *body.PlanID != 0 {
		var plan models.Plan
		if errFind := h.db.WithContext(ctx).First(&plan, *body.PlanID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan_id"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	now := time.Now().UTC()
	business := models.Business{
		Username:      username,
		Name:          strings.TrimSpace(body.Name),
		Email:         strings.TrimSpace(body.Email),
		Password:      hash,
		YearlyBilling: body.YearlyBilling,
		RateLimit:     body.RateLimit,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if body.PlanID != nil && *body.PlanID != 0 {
		business.PlanID = body.PlanID
	}
	if errCreate := h.db.WithContext(ctx).Create(&business).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create business failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatBusiness(&business))
}

// List returns businesses with optional filters.
func (h *BusinessHandler) List(c *gin.Context) {
	var (
		usernameQ = strings.TrimSpace(c.Query("username"))
		idQ       = strings.TrimSpace(c.Query("id"))
		emailQ    = strings.TrimSpace(c.Query("email"))
		planQ     = strings.TrimSpace(c.Query("plan_id"))
		searchQ   = strings.TrimSpace(c.Query("search"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Business{})
	if usernameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+usernameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), pattern)
	}
	if idQ != "" {
		if id, errParse := strconv.ParseUint(idQ, 10, 64); errParse == nil {
			q = q.Where("id = ?", id)
		}
	}
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}
	if planQ != "" {
		if planID, errParse := strconv.ParseUint(planQ, 10, 64); errParse == nil {
			q = q.Where("plan_id = ?", planID)
		}
	}
	if searchQ != "" {
		searchPattern := "%" + searchQ + "%"
		ciPattern := dbutil.NormalizeLikePattern(h.db, searchPattern)
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "username")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "email")+" OR CAST(id AS TEXT) LIKE ?",
			ciPattern,
			ciPattern,
			searchPattern,
		)
	}

	var rows []models.Business
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list businesses failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.formatBusiness(&row))
	}
	c.JSON(http.StatusOK, gin.H{"businesses": out})
}

// Get returns a business by ID.
func (h *BusinessHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var business models.Business
	if errFind := h.db.WithContext(c.Request.Context()).First(&business, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatBusiness(&business))
}

// updateBusinessRequest defines the request body for business updates.
type updateBusinessRequest struct {
	Username      *string `json:"username"`
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	PlanID        *uint64 `json:"plan_id"`
	YearlyBilling *bool   `json:"yearly_billing"`
	RateLimit     *int    `json:"rate_limit"`
}

// Update modifies a business account.
func (h *BusinessHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateBusinessRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Username != nil {
		username := strings.TrimSpace(*body.Username)
		if username != "" {
			updates["username"] = username
		}
	}
	if body.Name != nil {
		updates["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Email != nil {
		updates["email"] = strings.TrimSpace(*body.Email)
	}
	if body.PlanID != nil {
		if *body.PlanID == 0 {
			updates["plan_id"] = nil
		} else {
			var plan models.Plan
			if errFind := h.db.WithContext(ctx).First(&plan, *body.PlanID).Error; errFind != nil {
				if errors.Is(errFind, gorm.ErrRecordNotFound) {
					c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan_id"})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
				return
			}
			updates["plan_id"] = *body.PlanID
		}
	}
	if body.YearlyBilling != nil {
		updates["yearly_billing"] = *body.YearlyBilling
	}
	if body.RateLimit != nil {
		updates["rate_limit"] = *body.RateLimit
	}

	res := h.db.WithContext(ctx).Model(&models.Business{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a business account and its locations and orders.
func (h *BusinessHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()

	var business models.Business
	if errFind := h.db.WithContext(ctx).First(&business, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	errTx := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelOrders := tx.Where("business_id = ?", id).Delete(&models.Order{}).Error; errDelOrders != nil {
			return errDelOrders
		}
		if errDelLocations := tx.Where("business_id = ?", id).Delete(&models.Location{}).Error; errDelLocations != nil {
			return errDelLocations
		}
		if errDelInvoices := tx.Where("business_id = ?", id).Delete(&models.Invoice{}).Error; errDelInvoices != nil {
			return errDelInvoices
		}
		if errDelBusiness := tx.Delete(&models.Business{}, id).Error; errDelBusiness != nil {
			return errDelBusiness
		}
		return nil
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Disable deactivates a business account.
func (h *BusinessHandler) Disable(c *gin.Context) {
	h.setActive(c, false)
}

// Enable reactivates a business account.
func (h *BusinessHandler) Enable(c *gin.Context) {
	h.setActive(c, true)
}

// setActive toggles the active flag for a business.
func (h *BusinessHandler) setActive(c *gin.Context, active bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Business{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	Password string `json:"password"`
}

// ChangePassword updates a business's password.
func (h *BusinessHandler) ChangePassword(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Business{}).
		Where("id = ?", id).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change password failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// formatBusiness converts a business model into a response payload.
func (h *BusinessHandler) formatBusiness(b *models.Business) gin.H {
	return gin.H{
		"id":             b.ID,
		"username":       b.Username,
		"name":           b.Name,
		"email":          b.Email,
		"plan_id":        b.PlanID,
		"yearly_billing": b.YearlyBilling,
		"rate_limit":     b.RateLimit,
		"active":         b.Active,
		"created_at":     b.CreatedAt,
		"updated_at":     b.UpdatedAt,
	}
}
