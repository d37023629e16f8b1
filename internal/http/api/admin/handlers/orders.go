package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/store"
	"github.com/ordergrid/ordergrid/internal/usage"
	"github.com/ordergrid/ordergrid/internal/verification"
)

// OrderHandler exposes order history and manual order attribution
// across tenants for operators.
type OrderHandler struct {
	orders    *store.GormOrderStore
	locations *store.GormLocationStore
	recorder  *usage.Recorder
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{
		orders:    store.NewGormOrderStore(db),
		locations: store.NewGormLocationStore(db),
		recorder:  usage.NewRecorder(db),
	}
}

// createOrderRequest defines the request body for manual order
// attribution.
type createOrderRequest struct {
	BusinessID uint64  `json:"business_id" binding:"required"`
	LocationID uint64  `json:"location_id" binding:"required"`
	Total      float64 `json:"total"`
}

// Create records an operator-attributed order against a location. Phone
// and walk-in orders carry no QR or GPS evidence, so the attribution is
// marked manual.
func (h *OrderHandler) Create(c *gin.Context) {
	var body createOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if body.Total < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total cannot be negative"})
		return
	}

	ctx := c.Request.Context()
	if _, errFind := h.locations.ByID(ctx, body.BusinessID, body.LocationID); errFind != nil {
		if errors.Is(errFind, store.ErrLocationNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown location for business"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	result := verification.Result{
		IsValid:    true,
		LocationID: body.LocationID,
		BusinessID: body.BusinessID,
		Method:     verification.MethodManual,
	}
	order, errRecord := h.recorder.RecordOrder(ctx, body.BusinessID, result, body.Total)
	if errRecord != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record order failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":                  order.ID,
		"business_id":         order.BusinessID,
		"location_id":         order.LocationID,
		"status":              order.Status,
		"verification_method": order.VerificationMethod,
		"total":               order.Total,
		"placed_at":           order.PlacedAt,
	})
}

// List returns orders with optional filters and paging.
func (h *OrderHandler) List(c *gin.Context) {
	var filter store.OrderFilter
	if businessQ := strings.TrimSpace(c.Query("business_id")); businessQ != "" {
		if businessID, errParse := strconv.ParseUint(businessQ, 10, 64); errParse == nil {
			filter.BusinessID = businessID
		}
	}
	if locationQ := strings.TrimSpace(c.Query("location_id")); locationQ != "" {
		if locationID, errParse := strconv.ParseUint(locationQ, 10, 64); errParse == nil {
			filter.LocationID = locationID
		}
	}
	if statusQ := strings.TrimSpace(c.Query("status")); statusQ != "" {
		if status, errParse := strconv.Atoi(statusQ); errParse == nil {
			filter.Status = models.OrderStatus(status)
		}
	}
	if limitQ := strings.TrimSpace(c.Query("limit")); limitQ != "" {
		if limit, errParse := strconv.Atoi(limitQ); errParse == nil {
			filter.Limit = limit
		}
	}
	if offsetQ := strings.TrimSpace(c.Query("offset")); offsetQ != "" {
		if offset, errParse := strconv.Atoi(offsetQ); errParse == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	rows, total, errList := h.orders.All(c.Request.Context(), filter)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":                  row.ID,
			"business_id":         row.BusinessID,
			"location_id":         row.LocationID,
			"status":              row.Status,
			"verification_method": row.VerificationMethod,
			"total":               row.Total,
			"placed_at":           row.PlacedAt,
			"created_at":          row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "total": total})
}
