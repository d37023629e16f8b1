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
	"github.com/ordergrid/ordergrid/internal/security"
	"github.com/ordergrid/ordergrid/internal/store"
)

// LocationHandler manages admin endpoints for locations across tenants.
type LocationHandler struct {
	db        *gorm.DB
	locations *store.GormLocationStore
}

// NewLocationHandler constructs a LocationHandler.
func NewLocationHandler(db *gorm.DB) *LocationHandler {
	return &LocationHandler{db: db, locations: store.NewGormLocationStore(db)}
}

// validCoordinates reports whether the pair is a usable lat/long.
func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// createLocationRequest defines the request body for location creation.
type createLocationRequest struct {
	BusinessID uint64  `json:"business_id" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Address    string  `json:"address"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Create registers a location for a business with fresh QR codes.
func (h *LocationHandler) Create(c *gin.Context) {
	var body createLocationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if !validCoordinates(body.Latitude, body.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return
	}

	ctx := c.Request.Context()
	var business models.Business
	if errFind := h.db.WithContext(ctx).First(&business, body.BusinessID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown business_id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	primaryQR, errPrimary := security.GenerateQRCode()
	if errPrimary != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate qr code failed"})
		return
	}
	backupQR, errBackup := security.GenerateQRCode()
	if errBackup != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate qr code failed"})
		return
	}

	now := time.Now().UTC()
	location := models.Location{
		BusinessID:    business.ID,
		Name:          name,
		Address:       strings.TrimSpace(body.Address),
		Latitude:      body.Latitude,
		Longitude:     body.Longitude,
		QRCodePrimary: primaryQR,
		QRCodeBackup:  backupQR,
		IsActive:      true,
		ActivatedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if errCreate := h.locations.Create(ctx, &location); errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create location failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatLocation(&location))
}

// List returns locations with optional filters.
func (h *LocationHandler) List(c *gin.Context) {
	var (
		businessQ = strings.TrimSpace(c.Query("business_id"))
		activeQ   = strings.TrimSpace(c.Query("is_active"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Location{})
	if businessQ != "" {
		if businessID, errParse := strconv.ParseUint(businessQ, 10, 64); errParse == nil {
			q = q.Where("business_id = ?", businessID)
		}
	}
	if activeQ != "" {
		if activeQ == "true" || activeQ == "1" {
			q = q.Where("is_active = ?", true)
		} else if activeQ == "false" || activeQ == "0" {
			q = q.Where("is_active = ?", false)
		}
	}

	var rows []models.Location
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list locations failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.formatLocation(&row))
	}
	c.JSON(http.StatusOK, gin.H{"locations": out})
}

// Get returns a location by ID.
func (h *LocationHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var location models.Location
	if errFind := h.db.WithContext(c.Request.Context()).First(&location, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatLocation(&location))
}

// updateLocationRequest defines the request body for location updates.
type updateLocationRequest struct {
	Name      *string  `json:"name"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Update modifies a location.
func (h *LocationHandler) Update(c *gin.Context) {
	location, ok := h.loadLocation(c)
	if !ok {
		return
	}
	var body updateLocationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = name
	}
	if body.Address != nil {
		updates["address"] = strings.TrimSpace(*body.Address)
	}
	if body.Latitude != nil || body.Longitude != nil {
		if body.Latitude == nil || body.Longitude == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude must be updated together"})
			return
		}
		if !validCoordinates(*body.Latitude, *body.Longitude) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
			return
		}
		updates["latitude"] = *body.Latitude
		updates["longitude"] = *body.Longitude
	}

	updated, errUpdate := h.locations.Update(c.Request.Context(), location.BusinessID, location.ID, updates)
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

// Delete removes a location and its orders.
func (h *LocationHandler) Delete(c *gin.Context) {
	location, ok := h.loadLocation(c)
	if !ok {
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errOrders := tx.Where("location_id = ?", location.ID).Delete(&models.Order{}).Error; errOrders != nil {
			return errOrders
		}
		return tx.Delete(&models.Location{}, location.ID).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Activate turns billing on for a location.
func (h *LocationHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate turns billing off for a location.
func (h *LocationHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// setActive toggles a location's billing-active flag.
func (h *LocationHandler) setActive(c *gin.Context, active bool) {
	location, ok := h.loadLocation(c)
	if !ok {
		return
	}
	if _, errSet := h.locations.SetActive(c.Request.Context(), location.BusinessID, location.ID, active); errSet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// loadLocation parses the path ID and fetches the location, writing the
// error response on failure.
func (h *LocationHandler) loadLocation(c *gin.Context) (models.Location, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return models.Location{}, false
	}
	var location models.Location
	if errFind := h.db.WithContext(c.Request.Context()).First(&location, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return models.Location{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return models.Location{}, false
	}
	return location, true
}

// ResetUsage zeroes the monthly usage counters for a business's locations.
// Operators run this at the start of a new billing period.
func (h *LocationHandler) ResetUsage(c *gin.Context) {
	businessID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	reset, errReset := h.locations.ResetMonthlyUsage(c.Request.Context(), businessID)
	if errReset != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset usage failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "reset": reset})
}

// formatLocation converts a location model into a response payload.
func (h *LocationHandler) formatLocation(l *models.Location) gin.H {
	return gin.H{
		"id":              l.ID,
		"business_id":     l.BusinessID,
		"name":            l.Name,
		"address":         l.Address,
		"latitude":        l.Latitude,
		"longitude":       l.Longitude,
		"qr_code_primary": l.QRCodePrimary,
		"qr_code_backup":  l.QRCodeBackup,
		"is_active":       l.IsActive,
		"monthly_usage":   l.MonthlyUsage,
		"activated_at":    l.ActivatedAt,
		"deactivated_at":  l.DeactivatedAt,
		"created_at":      l.CreatedAt,
		"updated_at":      l.UpdatedAt,
	}
}
