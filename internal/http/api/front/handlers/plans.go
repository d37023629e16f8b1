package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
)

// PlanFrontHandler serves plan-related front endpoints.
type PlanFrontHandler struct {
	db *gorm.DB
}

// NewPlanFrontHandler constructs a PlanFrontHandler.
func NewPlanFrontHandler(db *gorm.DB) *PlanFrontHandler {
	return &PlanFrontHandler{db: db}
}

// List returns enabled plans for the current business.
func (h *PlanFrontHandler) List(c *gin.Context) {
	var plans []models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("is_enabled = ?", true).
		Order("sort_order ASC, created_at DESC").
		Find(&plans).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}

	out := make([]gin.H, 0, len(plans))
	for _, plan := range plans {
		out = append(out, gin.H{
			"id":                  plan.ID,
			"name":                plan.Name,
			"month_price":         plan.MonthPrice,
			"year_price":          plan.YearPrice,
			"description":         plan.Description,
			"location_limit":      plan.LocationLimit,
			"overage_month_price": plan.OverageMonthPrice,
			"overage_year_price":  plan.OverageYearPrice,
			"sort_order":          plan.SortOrder,
			"is_enabled":          plan.IsEnabled,
			"created_at":          plan.CreatedAt,
			"updated_at":          plan.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"plans": out})
}
