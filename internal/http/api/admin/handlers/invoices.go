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
	"github.com/ordergrid/ordergrid/internal/store"
)

// InvoiceHandler manages admin endpoints for invoices.
type InvoiceHandler struct {
	db        *gorm.DB
	generator *billing.Generator
	reporter  *billing.Reporter
}

// NewInvoiceHandler constructs an InvoiceHandler.
func NewInvoiceHandler(db *gorm.DB) *InvoiceHandler {
	return &InvoiceHandler{
		db:        db,
		generator: billing.NewGenerator(db),
		reporter:  billing.NewReporter(store.NewGormLocationStore(db), billing.NewGormBusinessSource(db)),
	}
}

// invoiceStatusTransitions maps each status to its allowed next states.
var invoiceStatusTransitions = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.InvoiceStatusDraft:   {models.InvoiceStatusSent, models.InvoiceStatusCancelled},
	models.InvoiceStatusSent:    {models.InvoiceStatusPaid, models.InvoiceStatusOverdue, models.InvoiceStatusCancelled},
	models.InvoiceStatusOverdue: {models.InvoiceStatusPaid, models.InvoiceStatusCancelled},
}

// validInvoiceTransition reports whether from may move to to.
func validInvoiceTransition(from, to models.InvoiceStatus) bool {
	for _, allowed := range invoiceStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// List returns invoices with optional filters.
func (h *InvoiceHandler) List(c *gin.Context) {
	var (
		businessQ = strings.TrimSpace(c.Query("business_id"))
		statusQ   = strings.TrimSpace(c.Query("status"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Invoice{})
	if businessQ != "" {
		if businessID, errParse := strconv.ParseUint(businessQ, 10, 64); errParse == nil {
			q = q.Where("business_id = ?", businessID)
		}
	}
	if statusQ != "" {
		q = q.Where("status = ?", statusQ)
	}

	var rows []models.Invoice
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list invoices failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatInvoice(&row))
	}
	c.JSON(http.StatusOK, gin.H{"invoices": out})
}

// Get returns an invoice by ID.
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var invoice models.Invoice
	if errFind := h.db.WithContext(c.Request.Context()).First(&invoice, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatInvoice(&invoice))
}

// generateInvoiceRequest defines the request body for invoice generation.
type generateInvoiceRequest struct {
	BusinessID  uint64 `json:"business_id"`
	PeriodStart string `json:"period_start"` // RFC3339.
	PeriodEnd   string `json:"period_end"`   // RFC3339.
}

// Generate creates an invoice for a business's current billing period.
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var body generateInvoiceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.BusinessID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing business_id"})
		return
	}
	periodStart, errStart := time.Parse(time.RFC3339, strings.TrimSpace(body.PeriodStart))
	if errStart != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	periodEnd, errEnd := time.Parse(time.RFC3339, strings.TrimSpace(body.PeriodEnd))
	if errEnd != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}
	if !periodEnd.After(periodStart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period_end must be after period_start"})
		return
	}

	ctx := c.Request.Context()

	var business models.Business
	if errFind := h.db.WithContext(ctx).Preload("Plan").First(&business, body.BusinessID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "business not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if business.Plan == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "business has no plan"})
		return
	}

	report, errReport := h.reporter.GenerateUsageReport(ctx, business.ID, periodStart, periodEnd)
	if errReport != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate usage report failed"})
		return
	}

	invoice, errCreate := h.generator.CreateInvoice(ctx, &business, business.Plan, report, business.YearlyBilling)
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate invoice failed"})
		return
	}
	c.JSON(http.StatusCreated, formatInvoice(&invoice))
}

// updateInvoiceStatusRequest defines the request body for status updates.
type updateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves an invoice through its lifecycle.
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateInvoiceStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	next := models.InvoiceStatus(strings.TrimSpace(strings.ToLower(body.Status)))
	switch next {
	case models.InvoiceStatusSent, models.InvoiceStatusPaid, models.InvoiceStatusOverdue, models.InvoiceStatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	ctx := c.Request.Context()

	var invoice models.Invoice
	if errFind := h.db.WithContext(ctx).First(&invoice, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !validInvoiceTransition(invoice.Status, next) {
		c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
		return
	}

	res := h.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, invoice.Status).
		Updates(map[string]any{"status": next, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "invoice changed concurrently"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// formatInvoice converts an invoice model into a response payload.
func formatInvoice(inv *models.Invoice) gin.H {
	return gin.H{
		"id":           inv.ID,
		"business_id":  inv.BusinessID,
		"number":       inv.Number,
		"line_items":   inv.LineItems,
		"subtotal":     inv.Subtotal,
		"tax":          inv.Tax,
		"total":        inv.Total,
		"status":       inv.Status,
		"period_start": inv.PeriodStart,
		"period_end":   inv.PeriodEnd,
		"issued_at":    inv.IssuedAt,
		"due_date":     inv.DueDate,
		"created_at":   inv.CreatedAt,
		"updated_at":   inv.UpdatedAt,
	}
}
