package handlers

import (
	"context"
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

// OrderFrontHandler manages order placement and history for a business.
type OrderFrontHandler struct {
	db       *gorm.DB
	orders   *store.GormOrderStore
	verifier *verification.Verifier
	recorder *usage.Recorder
}

// NewOrderFrontHandler constructs an OrderFrontHandler.
func NewOrderFrontHandler(db *gorm.DB) *OrderFrontHandler {
	return &OrderFrontHandler{
		db:       db,
		orders:   store.NewGormOrderStore(db),
		verifier: verification.NewVerifier(store.NewGormLocationStore(db)),
		recorder: usage.NewRecorder(db),
	}
}

// placeOrderRequest defines the request body for placing an order. The
// client supplies whatever location evidence it has: a scanned QR code,
// device coordinates, or neither.
type placeOrderRequest struct {
	QRCode      string                    `json:"qr_code"`
	Coordinates *verification.Coordinates `json:"coordinates"`
	Total       float64                   `json:"total"`
}

// requestCoordinates adapts coordinates from the request body to the
// provider interface the verification chain consumes.
type requestCoordinates struct {
	coords verification.Coordinates
}

func (r requestCoordinates) Current(_ context.Context) (verification.Coordinates, error) {
	return r.coords, nil
}

// Place verifies the customer's location claim and records the order.
// QR code wins outright; GPS authorizes within the geofence; IP alone
// never authorizes, so the attempt is rejected with the verification
// context in the response.
func (h *OrderFrontHandler) Place(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body placeOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Total < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total cannot be negative"})
		return
	}

	var provider verification.GeolocationProvider
	if body.Coordinates != nil {
		provider = requestCoordinates{coords: *body.Coordinates}
	}

	ctx := c.Request.Context()
	result := h.verifier.VerifyForOrder(ctx, businessID, body.QRCode, provider, c.ClientIP())
	if !result.IsValid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":        "location verification failed",
			"verification": result,
		})
		return
	}

	order, errRecord := h.recorder.RecordOrder(ctx, businessID, result, body.Total)
	if errRecord != nil {
		if errors.Is(errRecord, usage.ErrNotAuthorized) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "location verification failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record order failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":        formatOrder(&order),
		"verification": result,
	})
}

// List returns the business's orders with filters and paging.
func (h *OrderFrontHandler) List(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var filter store.OrderFilter
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

	rows, total, errList := h.orders.ByBusinessID(c.Request.Context(), businessID, filter)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatOrder(&row))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "total": total})
}

// updateOrderStatusRequest defines the request body for status updates.
type updateOrderStatusRequest struct {
	Status int `json:"status"`
}

// UpdateStatus completes or cancels one of the business's orders.
func (h *OrderFrontHandler) UpdateStatus(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateOrderStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	status := models.OrderStatus(body.Status)
	switch status {
	case models.OrderStatusCompleted, models.OrderStatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	updated, errUpdate := h.orders.UpdateStatus(c.Request.Context(), businessID, id, status)
	if errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// formatOrder converts an order model into a response payload.
func formatOrder(o *models.Order) gin.H {
	return gin.H{
		"id":                  o.ID,
		"location_id":         o.LocationID,
		"status":              o.Status,
		"verification_method": o.VerificationMethod,
		"total":               o.Total,
		"placed_at":           o.PlacedAt,
		"created_at":          o.CreatedAt,
	}
}
