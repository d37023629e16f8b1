package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
)

// TaxRate is the flat tax rate applied to the invoice subtotal.
const TaxRate = 0.08

// InvoiceDueDays is how many days after issue an invoice is due.
const InvoiceDueDays = 15

// LineItem is one charge line on an invoice.
type LineItem struct {
	Description string  `json:"description"` // Charge description.
	Quantity    int     `json:"quantity"`    // Number of units billed.
	UnitPrice   float64 `json:"unit_price"`  // Price per unit.
	Amount      float64 `json:"amount"`      // Quantity times UnitPrice.
}

// Generator builds and persists invoices.
type Generator struct {
	db *gorm.DB
}

// NewGenerator constructs a Generator.
func NewGenerator(db *gorm.DB) *Generator {
	return &Generator{db: db}
}

// RoundCents rounds a money amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuildInvoice assembles an unsaved draft invoice from a usage report:
// a base subscription line, an overage line when the report's active
// locations exceed the included limit, then tax rounded to cents. The
// period comes from the report, so the invoice always mirrors the
// snapshot it was generated from. The due date is a fixed number of
// days after issue.
func BuildInvoice(business *models.Business, plan *models.Plan, report UsageReport, yearly bool) (models.Invoice, error) {
	charge := CalculateBillingAmount(plan, report.Totals.ActiveLocations, yearly)

	cadence := "monthly"
	if yearly {
		cadence = "yearly"
	}
	items := []LineItem{
		{
			Description: fmt.Sprintf("%s plan (%s)", plan.Name, cadence),
			Quantity:    1,
			UnitPrice:   charge.BasePrice,
			Amount:      charge.BasePrice,
		},
	}
	if charge.OverageCount > 0 {
		items = append(items, LineItem{
			Description: fmt.Sprintf("location overage (%d over the %d included)", charge.OverageCount, plan.LocationLimit),
			Quantity:    charge.OverageCount,
			UnitPrice:   charge.OveragePrice,
			Amount:      charge.OverageCharge,
		})
	}

	raw, errMarshal := json.Marshal(items)
	if errMarshal != nil {
		return models.Invoice{}, errMarshal
	}

	subtotal := charge.Total
	tax := RoundCents(subtotal * TaxRate)
	issuedAt := time.Now().UTC()
	return models.Invoice{
		BusinessID:  business.ID,
		Number:      uuid.NewString(),
		LineItems:   datatypes.JSON(raw),
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       subtotal + tax,
		Status:      models.InvoiceStatusDraft,
		PeriodStart: report.PeriodStart,
		PeriodEnd:   report.PeriodEnd,
		IssuedAt:    issuedAt,
		DueDate:     issuedAt.AddDate(0, 0, InvoiceDueDays),
	}, nil
}

// CreateInvoice builds a draft invoice from a usage report and stores
// it.
func (g *Generator) CreateInvoice(ctx context.Context, business *models.Business, plan *models.Plan, report UsageReport, yearly bool) (models.Invoice, error) {
	invoice, errBuild := BuildInvoice(business, plan, report, yearly)
	if errBuild != nil {
		return models.Invoice{}, errBuild
	}
	if errCreate := g.db.WithContext(ctx).Create(&invoice).Error; errCreate != nil {
		log.WithError(errCreate).Error("billing: store invoice")
		return models.Invoice{}, errCreate
	}
	return invoice, nil
}
