package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
)

// PlanHandler manages admin CRUD endpoints for plans.
type PlanHandler struct {
	db *gorm.DB // Database handle for plan records.
}

// NewPlanHandler constructs a plan handler.
func NewPlanHandler(db *gorm.DB) *PlanHandler {
	return &PlanHandler{db: db}
}

// validLocationLimit accepts non-negative caps and the unlimited marker.
func validLocationLimit(limit int) bool {
	return limit >= 0 || limit == models.UnlimitedLocations
}

// createPlanRequest captures the payload for creating a plan.
type createPlanRequest struct {
	Name              string  `json:"name"`                // Plan name.
	MonthPrice        float64 `json:"month_price"`         // Monthly price.
	YearPrice         float64 `json:"year_price"`          // Yearly price.
	Description       string  `json:"description"`         // Plan description.
	LocationLimit     int     `json:"location_limit"`      // Included locations (-1 unlimited).
	OverageMonthPrice float64 `json:"overage_month_price"` // Monthly overage price per location.
	OverageYearPrice  float64 `json:"overage_year_price"`  // Yearly overage price per location.
	SortOrder         int     `json:"sort_order"`          // Display order.
	IsEnabled         *bool   `json:"is_enabled"`          // Optional active flag.
}

// Create validates input and inserts a new plan.
func (h *PlanHandler) Create(c *gin.Context) {
	var body createPlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if !validLocationLimit(body.LocationLimit) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location_limit"})
		return
	}
	if body.MonthPrice < 0 || body.YearPrice < 0 || body.OverageMonthPrice < 0 || body.OverageYearPrice < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prices cannot be negative"})
		return
	}

	isEnabled := true
	if body.IsEnabled != nil {
		isEnabled = *body.IsEnabled
	}

	now := time.Now().UTC()
	plan := models.Plan{
		Name:              strings.TrimSpace(body.Name),
		MonthPrice:        body.MonthPrice,
		YearPrice:         body.YearPrice,
		Description:       body.Description,
		LocationLimit:     body.LocationLimit,
		OverageMonthPrice: body.OverageMonthPrice,
		OverageYearPrice:  body.OverageYearPrice,
		SortOrder:         body.SortOrder,
		IsEnabled:         isEnabled,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&plan).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create plan failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatPlan(&plan))
}

// List returns all plans, optionally filtered by enabled flag.
func (h *PlanHandler) List(c *gin.Context) {
	enabledQ := strings.TrimSpace(c.Query("is_enabled"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.Plan{})
	if enabledQ != "" {
		if enabledQ == "true" || enabledQ == "1" {
			q = q.Where("is_enabled = ?", true)
		} else if enabledQ == "false" || enabledQ == "0" {
			q = q.Where("is_enabled = ?", false)
		}
	}

	var rows []models.Plan
	if errFind := q.Order("sort_order ASC, created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.formatPlan(&row))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// Get fetches a plan by ID.
func (h *PlanHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var plan models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).First(&plan, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatPlan(&plan))
}

// updatePlanRequest captures optional fields for plan updates.
type updatePlanRequest struct {
	Name              *string  `json:"name"`                // Optional name update.
	MonthPrice        *float64 `json:"month_price"`         // Optional monthly price.
	YearPrice         *float64 `json:"year_price"`          // Optional yearly price.
	Description       *string  `json:"description"`         // Optional description.
	LocationLimit     *int     `json:"location_limit"`      // Optional location cap.
	OverageMonthPrice *float64 `json:"overage_month_price"` // Optional monthly overage price.
	OverageYearPrice  *float64 `json:"overage_year_price"`  // Optional yearly overage price.
	SortOrder         *int     `json:"sort_order"`          // Optional display order.
	IsEnabled         *bool    `json:"is_enabled"`          // Optional active flag.
}

// Update validates and applies plan field updates.
func (h *PlanHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updatePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var existing models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).First(&existing, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{
		"updated_at": time.Now().UTC(),
	}

	if body.Name != nil {
		n := strings.TrimSpace(*body.Name)
		if n == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = n
	}
	if body.MonthPrice != nil {
		if *body.MonthPrice < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prices cannot be negative"})
			return
		}
		updates["month_price"] = *body.MonthPrice
	}
	if body.YearPrice != nil {
		if *body.YearPrice < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prices cannot be negative"})
			return
		}
		updates["year_price"] = *body.YearPrice
	}
	if body.Description != nil {
		updates["description"] = *body.Description
	}
	if body.LocationLimit != nil {
		if !validLocationLimit(*body.LocationLimit) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location_limit"})
			return
		}
		updates["location_limit"] = *body.LocationLimit
	}
	if body.OverageMonthPrice != nil {
		if *body.OverageMonthPrice < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prices cannot be negative"})
			return
		}
		updates["overage_month_price"] = *body.OverageMonthPrice
	}
	if body.OverageYearPrice != nil {
		if *body.OverageYearPrice < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prices cannot be negative"})
			return
		}
		updates["overage_year_price"] = *body.OverageYearPrice
	}
	if body.SortOrder != nil {
		updates["sort_order"] = *body.SortOrder
	}
	if body.IsEnabled != nil {
		updates["is_enabled"] = *body.IsEnabled
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Plan{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a plan by ID when no business is subscribed to it.
func (h *PlanHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var subscribed int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Business{}).
		Where("plan_id = ?", id).Count(&subscribed).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if subscribed > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "plan has subscribed businesses"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Delete(&models.Plan{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Enable marks a plan as enabled.
func (h *PlanHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

// Disable marks a plan as disabled.
func (h *PlanHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

// setEnabled toggles the enabled state for a plan.
func (h *PlanHandler) setEnabled(c *gin.Context, enabled bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	now := time.Now().UTC()
	res := h.db.WithContext(c.Request.Context()).Model(&models.Plan{}).Where("id = ?", id).
		Updates(map[string]any{"is_enabled": enabled, "updated_at": now})
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

// formatPlan converts a plan model into a response payload.
func (h *PlanHandler) formatPlan(p *models.Plan) gin.H {
	return gin.H{
		"id":                  p.ID,
		"name":                p.Name,
		"month_price":         p.MonthPrice,
		"year_price":          p.YearPrice,
		"description":         p.Description,
		"location_limit":      p.LocationLimit,
		"overage_month_price": p.OverageMonthPrice,
		"overage_year_price":  p.OverageYearPrice,
		"sort_order":          p.SortOrder,
		"is_enabled":          p.IsEnabled,
		"created_at":          p.CreatedAt,
		"updated_at":          p.UpdatedAt,
	}
}
