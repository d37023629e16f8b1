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

// BillingFrontHandler serves billing previews, usage reports, and
// invoices for a business.
type BillingFrontHandler struct {
	db         *gorm.DB
	locations  *store.GormLocationStore
	calculator *billing.Calculator
	reporter   *billing.Reporter
	generator  *billing.Generator
}

// NewBillingFrontHandler constructs a BillingFrontHandler.
func NewBillingFrontHandler(db *gorm.DB) *BillingFrontHandler {
	locations := store.NewGormLocationStore(db)
	return &BillingFrontHandler{
		db:         db,
		locations:  locations,
		calculator: billing.NewCalculator(billing.NewGormCatalog(db)),
		reporter:   billing.NewReporter(locations, billing.NewGormBusinessSource(db)),
		generator:  billing.NewGenerator(db),
	}
}

// loadBusinessWithPlan fetches the business and requires an assigned plan.
func (h *BillingFrontHandler) loadBusinessWithPlan(c *gin.Context, businessID uint64) (models.Business, bool) {
	var business models.Business
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Plan").
		First(&business, businessID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return models.Business{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return models.Business{}, false
	}
	if business.Plan == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no plan assigned"})
		return models.Business{}, false
	}
	return business, true
}

// Preview returns the charge breakdown for the current billing period.
func (h *BillingFrontHandler) Preview(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	business, ok := h.loadBusinessWithPlan(c, businessID)
	if !ok {
		return
	}

	active, errCount := h.locations.CountActive(c.Request.Context(), businessID)
	if errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count locations failed"})
		return
	}

	charge := billing.CalculateBillingAmount(business.Plan, active, business.YearlyBilling)
	c.JSON(http.StatusOK, gin.H{
		"plan_id":          business.Plan.ID,
		"plan_name":        business.Plan.Name,
		"active_locations": active,
		"charge":           charge,
	})
}

// Limits reports how the business's active locations compare to its
// plan limit, with an upgrade recommendation when over.
func (h *BillingFrontHandler) Limits(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	business, ok := h.loadBusinessWithPlan(c, businessID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	active, errCount := h.locations.CountActive(ctx, businessID)
	if errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count locations failed"})
		return
	}

	check, errCheck := h.calculator.CheckPlanLimits(ctx, business.Plan, active)
	if errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "limit check failed"})
		return
	}
	c.JSON(http.StatusOK, check)
}

// Proration previews the credit and charge of switching to another plan
// mid-period.
func (h *BillingFrontHandler) Proration(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	newPlanQ := strings.TrimSpace(c.Query("plan_id"))
	newPlanID, errParse := strconv.ParseUint(newPlanQ, 10, 64)
	if errParse != nil || newPlanID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_id"})
		return
	}
	daysRemaining, errDays := strconv.Atoi(strings.TrimSpace(c.Query("days_remaining")))
	if errDays != nil || daysRemaining < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days_remaining"})
		return
	}
	periodDays := 0
	if periodQ := strings.TrimSpace(c.Query("period_days")); periodQ != "" {
		parsed, errPeriod := strconv.Atoi(periodQ)
		if errPeriod != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_days"})
			return
		}
		periodDays = parsed
	}

	business, ok := h.loadBusinessWithPlan(c, businessID)
	if !ok {
		return
	}

	var newPlan models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND is_enabled = ?", newPlanID, true).
		First(&newPlan).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	oldPrice := business.Plan.BasePrice(business.YearlyBilling)
	newPrice := newPlan.BasePrice(business.YearlyBilling)
	proration := billing.CalculateProration(oldPrice, newPrice, daysRemaining, periodDays)
	c.JSON(http.StatusOK, gin.H{
		"current_plan_id": business.Plan.ID,
		"new_plan_id":     newPlan.ID,
		"proration":       proration,
	})
}

// UsageReport returns the per-location order counts for the current
// period. Optional period bounds are reporting metadata.
func (h *BillingFrontHandler) UsageReport(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	now := time.Now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	if startQ := strings.TrimSpace(c.Query("period_start")); startQ != "" {
		parsed, errStart := time.Parse(time.RFC3339, startQ)
		if errStart != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
			return
		}
		periodStart = parsed
	}
	if endQ := strings.TrimSpace(c.Query("period_end")); endQ != "" {
		parsed, errEnd := time.Parse(time.RFC3339, endQ)
		if errEnd != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
			return
		}
		periodEnd = parsed
	}

	report, errReport := h.reporter.GenerateUsageReport(c.Request.Context(), businessID, periodStart, periodEnd)
	if errReport != nil {
		if errors.Is(errReport, billing.ErrNoPlanAssigned) {
			c.JSON(http.StatusConflict, gin.H{"error": "no plan assigned"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate report failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// generateInvoiceRequest defines the optional period bounds for invoice
// generation. Omitted bounds default to the current calendar month.
type generateInvoiceRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// GenerateInvoice creates a draft invoice for the current billing period.
func (h *BillingFrontHandler) GenerateInvoice(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body generateInvoiceRequest
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	now := time.Now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	if startRaw := strings.TrimSpace(body.PeriodStart); startRaw != "" {
		parsed, errStart := time.Parse(time.RFC3339, startRaw)
		if errStart != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
			return
		}
		periodStart = parsed
	}
	if endRaw := strings.TrimSpace(body.PeriodEnd); endRaw != "" {
		parsed, errEnd := time.Parse(time.RFC3339, endRaw)
		if errEnd != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
			return
		}
		periodEnd = parsed
	}
	if !periodEnd.After(periodStart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period_end must be after period_start"})
		return
	}

	business, ok := h.loadBusinessWithPlan(c, businessID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	report, errReport := h.reporter.GenerateUsageReport(ctx, businessID, periodStart, periodEnd)
	if errReport != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate usage report failed"})
		return
	}

	invoice, errCreate := h.generator.CreateInvoice(ctx, &business, business.Plan, report, business.YearlyBilling)
	if errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate invoice failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invoice": formatBusinessInvoice(&invoice)})
}

// Invoices returns the business's invoices, newest first.
func (h *BillingFrontHandler) Invoices(c *gin.Context) {
	businessID := getBusinessID(c)
	if businessID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q := h.db.WithContext(c.Request.Context()).
		Model(&models.Invoice{}).
		Where("business_id = ?", businessID)
	if statusQ := strings.TrimSpace(c.Query("status")); statusQ != "" {
		q = q.Where("status = ?", statusQ)
	}

	var rows []models.Invoice
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list invoices failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatBusinessInvoice(&row))
	}
	c.JSON(http.StatusOK, gin.H{"invoices": out})
}

// formatBusinessInvoice converts an invoice model into a response payload.
func formatBusinessInvoice(inv *models.Invoice) gin.H {
	return gin.H{
		"id":           inv.ID,
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
	}
}
