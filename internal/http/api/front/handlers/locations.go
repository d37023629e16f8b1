package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/billing"
	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/security"
	"github.com/ordergrid/ordergrid/internal/store"
)

// LocationFrontHandler manages a business's own locations.
type LocationFrontHandler struct {
	db        *gorm.DB
	locations *store.GormLocationStore
}

// NewLocationFrontHandler constructs a LocationFrontHandler.
func NewLocationFrontHandler(db *gorm.DB) *LocationFrontHandler {
	return &LocationFrontHandler{db: db, locations: store.NewGormLocationStore(db)}
}

// validCoordinates reports whether the pair is a usable lat/long.
func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// createLocationRequest defines the request body for location creation.
type createLocationRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Create registers a new location with freshly generated QR codes.
func (h *LocationFrontHandler) Create(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body createLocationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
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

	check, hasCheck := h.activationCheck(c, businessID)

	now := time.Now().UTC()
	location := models.Location{
		BusinessID:    businessID,
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
	if errCreate := h.locations.Create(c.Request.Context(), &location); errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create location failed"})
		return
	}

	out := gin.H{"location": h.formatLocation(&location)}
	if hasCheck && check.OverLimit {
		out["activation"] = check
	}
	c.JSON(http.StatusCreated, out)
}

// List returns the business's locations.
func (h *LocationFrontHandler) List(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rows, errList := h.locations.ByBusinessID(c.Request.Context(), businessID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list locations failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.formatLocation(&row))
	}
	c.JSON(http.StatusOK, gin.H{"locations": out})
}

// Get returns one of the business's locations by ID.
func (h *LocationFrontHandler) Get(c *gin.Context) {
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

	location, errFind := h.locations.ByID(c.Request.Context(), businessID, id)
	if errFind != nil {
		if errors.Is(errFind, store.ErrLocationNotFound) {
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

// Update modifies one of the business's locations.
func (h *LocationFrontHandler) Update(c *gin.Context) {
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

	updated, errUpdate := h.locations.Update(c.Request.Context(), businessID, id, updates)
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

// Activate turns billing on for a location. Activation is never blocked
// by the plan limit; the response carries an overage warning instead.
func (h *LocationFrontHandler) Activate(c *gin.Context) {
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

	ctx := c.Request.Context()
	location, errFind := h.locations.ByID(ctx, businessID, id)
	if errFind != nil {
		if errors.Is(errFind, store.ErrLocationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := gin.H{"ok": true}
	if !location.IsActive {
		if check, ok := h.activationCheck(c, businessID); ok {
			out["activation"] = check
		}
	}

	if _, errSet := h.locations.SetActive(ctx, businessID, id, true); errSet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "activate failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Deactivate turns billing off for a location.
func (h *LocationFrontHandler) Deactivate(c *gin.Context) {
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

	ctx := c.Request.Context()
	if _, errFind := h.locations.ByID(ctx, businessID, id); errFind != nil {
		if errors.Is(errFind, store.ErrLocationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if _, errSet := h.locations.SetActive(ctx, businessID, id, false); errSet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deactivate failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RegenerateQR replaces a location's QR codes with fresh ones.
func (h *LocationFrontHandler) RegenerateQR(c *gin.Context) {
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

	updated, errUpdate := h.locations.Update(c.Request.Context(), businessID, id, map[string]any{
		"qr_code_primary": primaryQR,
		"qr_code_backup":  backupQR,
		"updated_at":      time.Now().UTC(),
	})
	if errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "regenerate qr failed"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"qr_code_primary": primaryQR,
		"qr_code_backup":  backupQR,
	})
}

// activationCheck evaluates what activating one more location would
// cost against the business's plan.
func (h *LocationFrontHandler) activationCheck(c *gin.Context, businessID uint64) (billing.ActivationCheck, bool) {
	ctx := c.Request.Context()

	var business models.Business
	if errFind := h.db.WithContext(ctx).Preload("Plan").First(&business, businessID).Error; errFind != nil {
		return billing.ActivationCheck{}, false
	}
	if business.Plan == nil {
		return billing.ActivationCheck{}, false
	}

	active, errCount := h.locations.CountActive(ctx, businessID)
	if errCount != nil {
		return billing.ActivationCheck{}, false
	}
	return billing.ValidateLocationActivation(business.Plan, active, business.YearlyBilling), true
}

// formatLocation converts a location model into a response payload.
func (h *LocationFrontHandler) formatLocation(l *models.Location) gin.H {
	return gin.H{
		"id":              l.ID,
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
