package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ordergrid/ordergrid/internal/models"
)

func reportForPeriod(active int, start, end time.Time) UsageReport {
	return UsageReport{
		BusinessID:  1,
		PeriodStart: start,
		PeriodEnd:   end,
		Totals:      UsageTotals{ActiveLocations: active},
	}
}

func TestBuildInvoice_BaseOnly(t *testing.T) {
	starter, _, _ := testPlans()
	business := models.Business{ID: 1, Name: "Acme"}
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	invoice, errBuild := BuildInvoice(&business, &starter, reportForPeriod(2, start, end), false)
	if errBuild != nil {
		t.Fatalf("BuildInvoice: %v", errBuild)
	}

	var items []LineItem
	if errUnmarshal := json.Unmarshal(invoice.LineItems, &items); errUnmarshal != nil {
		t.Fatalf("unmarshal line items: %v", errUnmarshal)
	}
	if len(items) != 1 {
		t.Fatalf("expected a single base line item, got %d", len(items))
	}
	if !moneyEqual(invoice.Subtotal, 29) {
		t.Fatalf("expected subtotal 29, got %f", invoice.Subtotal)
	}
	if !moneyEqual(invoice.Tax, 2.32) {
		t.Fatalf("expected tax 2.32, got %f", invoice.Tax)
	}
	if !moneyEqual(invoice.Total, 31.32) {
		t.Fatalf("expected total 31.32, got %f", invoice.Total)
	}
	if invoice.Status != models.InvoiceStatusDraft {
		t.Fatalf("expected draft status, got %s", invoice.Status)
	}
	if !invoice.PeriodStart.Equal(start) || !invoice.PeriodEnd.Equal(end) {
		t.Fatalf("expected invoice period to mirror the report, got %v..%v", invoice.PeriodStart, invoice.PeriodEnd)
	}
}

func TestBuildInvoice_OverageLineItem(t *testing.T) {
	starter, _, _ := testPlans()
	business := models.Business{ID: 1}
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	invoice, errBuild := BuildInvoice(&business, &starter, reportForPeriod(5, start, start.AddDate(0, 1, 0)), false)
	if errBuild != nil {
		t.Fatalf("BuildInvoice: %v", errBuild)
	}

	var items []LineItem
	if errUnmarshal := json.Unmarshal(invoice.LineItems, &items); errUnmarshal != nil {
		t.Fatalf("unmarshal line items: %v", errUnmarshal)
	}
	if len(items) != 2 {
		t.Fatalf("expected base plus overage items, got %d", len(items))
	}
	if items[1].Quantity != 2 || !moneyEqual(items[1].Amount, 20) {
		t.Fatalf("expected 2 overage units for 20, got %+v", items[1])
	}
	if !moneyEqual(invoice.Subtotal, 49) {
		t.Fatalf("expected subtotal 49, got %f", invoice.Subtotal)
	}
}

func TestBuildInvoice_DueDateAndNumber(t *testing.T) {
	starter, _, _ := testPlans()
	business := models.Business{ID: 1}
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	report := reportForPeriod(1, start, start.AddDate(0, 1, 0))

	invoice, errBuild := BuildInvoice(&business, &starter, report, false)
	if errBuild != nil {
		t.Fatalf("BuildInvoice: %v", errBuild)
	}
	if invoice.Number == "" {
		t.Fatal("expected a generated invoice number")
	}
	wantDue := invoice.IssuedAt.AddDate(0, 0, InvoiceDueDays)
	if !invoice.DueDate.Equal(wantDue) {
		t.Fatalf("expected due date %v, got %v", wantDue, invoice.DueDate)
	}

	second, _ := BuildInvoice(&business, &starter, report, false)
	if second.Number == invoice.Number {
		t.Fatal("expected unique invoice numbers")
	}
}

func TestBuildInvoice_TaxRoundsToCents(t *testing.T) {
	plan := models.Plan{ID: 9, Name: "odd", MonthPrice: 10.55, LocationLimit: 1, IsEnabled: true}
	business := models.Business{ID: 1}
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	invoice, errBuild := BuildInvoice(&business, &plan, reportForPeriod(1, start, start.AddDate(0, 1, 0)), false)
	if errBuild != nil {
		t.Fatalf("BuildInvoice: %v", errBuild)
	}
	// 10.55 * 0.08 = 0.844, rounded to 0.84.
	if !moneyEqual(invoice.Tax, 0.84) {
		t.Fatalf("expected tax 0.84, got %f", invoice.Tax)
	}
}

type fakeLocationLister struct {
	locations []models.Location
	err       error
}

func (f *fakeLocationLister) ByBusinessID(_ context.Context, _ uint64) ([]models.Location, error) {
	return f.locations, f.err
}

type fakeBusinessSource struct {
	business models.Business
	err      error
}

func (f *fakeBusinessSource) BusinessWithPlan(_ context.Context, _ uint64) (models.Business, error) {
	return f.business, f.err
}

func TestGenerateUsageReport_AggregatesCountersAndCharges(t *testing.T) {
	starter, _, _ := testPlans()
	activated := time.Date(2026, 7, 12, 9, 0, 0, 0, time.UTC)
	lister := &fakeLocationLister{locations: []models.Location{
		{ID: 1, Name: "Downtown", MonthlyUsage: 40, IsActive: true, ActivatedAt: &activated},
		{ID: 2, Name: "Airport", MonthlyUsage: 15, IsActive: true},
		{ID: 3, Name: "Closed", MonthlyUsage: 5, IsActive: false},
	}}
	source := &fakeBusinessSource{business: models.Business{ID: 1, Plan: &starter}}
	reporter := NewReporter(lister, source)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	report, errReport := reporter.GenerateUsageReport(context.Background(), 1, start, start.AddDate(0, 1, 0))
	if errReport != nil {
		t.Fatalf("GenerateUsageReport: %v", errReport)
	}
	if report.Totals.TotalOrders != 60 {
		t.Fatalf("expected 60 total orders, got %d", report.Totals.TotalOrders)
	}
	if report.Totals.ActiveLocations != 2 {
		t.Fatalf("expected 2 active locations, got %d", report.Totals.ActiveLocations)
	}
	if len(report.Locations) != 3 {
		t.Fatalf("expected all locations in the breakdown, got %d", len(report.Locations))
	}
	if report.Locations[0].ActivatedAt == nil || !report.Locations[0].ActivatedAt.Equal(activated) {
		t.Fatalf("expected activation timestamp carried into the report, got %v", report.Locations[0].ActivatedAt)
	}
	if !moneyEqual(report.Totals.BaseCharge, 29) {
		t.Fatalf("expected base charge 29, got %f", report.Totals.BaseCharge)
	}
	if !moneyEqual(report.Totals.LocationCharges, 0) {
		t.Fatalf("expected no overage within the limit, got %f", report.Totals.LocationCharges)
	}
	if !moneyEqual(report.Totals.TotalAmount, 29) {
		t.Fatalf("expected total amount 29, got %f", report.Totals.TotalAmount)
	}
}

func TestGenerateUsageReport_OverLimitChargesOverage(t *testing.T) {
	starter, _, _ := testPlans()
	lister := &fakeLocationLister{locations: []models.Location{
		{ID: 1, Name: "One", MonthlyUsage: 10, IsActive: true},
		{ID: 2, Name: "Two", MonthlyUsage: 10, IsActive: true},
		{ID: 3, Name: "Three", MonthlyUsage: 10, IsActive: true},
		{ID: 4, Name: "Four", MonthlyUsage: 10, IsActive: true},
	}}
	source := &fakeBusinessSource{business: models.Business{ID: 1, Plan: &starter}}
	reporter := NewReporter(lister, source)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	report, errReport := reporter.GenerateUsageReport(context.Background(), 1, start, start.AddDate(0, 1, 0))
	if errReport != nil {
		t.Fatalf("GenerateUsageReport: %v", errReport)
	}
	if !moneyEqual(report.Totals.BaseCharge, 29) {
		t.Fatalf("expected base charge 29, got %f", report.Totals.BaseCharge)
	}
	if !moneyEqual(report.Totals.LocationCharges, 10) {
		t.Fatalf("expected one overage location for 10, got %f", report.Totals.LocationCharges)
	}
	if !moneyEqual(report.Totals.TotalAmount, 39) {
		t.Fatalf("expected total amount 39, got %f", report.Totals.TotalAmount)
	}
}

func TestGenerateUsageReport_NoPlanAssigned(t *testing.T) {
	reporter := NewReporter(&fakeLocationLister{}, &fakeBusinessSource{business: models.Business{ID: 1}})

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, errReport := reporter.GenerateUsageReport(context.Background(), 1, start, start.AddDate(0, 1, 0)); errReport != ErrNoPlanAssigned {
		t.Fatalf("expected ErrNoPlanAssigned, got %v", errReport)
	}
}

func TestGenerateUsageReport_EmptyBusiness(t *testing.T) {
	starter, _, _ := testPlans()
	reporter := NewReporter(&fakeLocationLister{}, &fakeBusinessSource{business: models.Business{ID: 1, Plan: &starter}})

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	report, errReport := reporter.GenerateUsageReport(context.Background(), 1, start, start.AddDate(0, 1, 0))
	if errReport != nil {
		t.Fatalf("GenerateUsageReport: %v", errReport)
	}
	if report.Totals.TotalOrders != 0 || report.Totals.ActiveLocations != 0 || len(report.Locations) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if !moneyEqual(report.Totals.TotalAmount, 29) {
		t.Fatalf("expected the base charge to still apply, got %f", report.Totals.TotalAmount)
	}
}

func TestBuildInvoice_MirrorsReportSnapshot(t *testing.T) {
	starter, _, _ := testPlans()
	business := models.Business{ID: 1, Plan: &starter}
	lister := &fakeLocationLister{locations: []models.Location{
		{ID: 1, Name: "One", MonthlyUsage: 3, IsActive: true},
		{ID: 2, Name: "Two", MonthlyUsage: 3, IsActive: true},
		{ID: 3, Name: "Three", MonthlyUsage: 3, IsActive: true},
		{ID: 4, Name: "Four", MonthlyUsage: 3, IsActive: true},
	}}
	reporter := NewReporter(lister, &fakeBusinessSource{business: business})

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	report, errReport := reporter.GenerateUsageReport(context.Background(), 1, start, start.AddDate(0, 1, 0))
	if errReport != nil {
		t.Fatalf("GenerateUsageReport: %v", errReport)
	}

	// A location activated after the snapshot must not change the
	// invoice built from it.
	lister.locations = append(lister.locations, models.Location{ID: 5, Name: "Five", IsActive: true})

	invoice, errBuild := BuildInvoice(&business, &starter, report, false)
	if errBuild != nil {
		t.Fatalf("BuildInvoice: %v", errBuild)
	}
	if !moneyEqual(invoice.Subtotal, report.Totals.TotalAmount) {
		t.Fatalf("expected invoice subtotal %f to equal report total, got %f", report.Totals.TotalAmount, invoice.Subtotal)
	}

	var items []LineItem
	if errUnmarshal := json.Unmarshal(invoice.LineItems, &items); errUnmarshal != nil {
		t.Fatalf("unmarshal line items: %v", errUnmarshal)
	}
	if len(items) != 2 || items[1].Quantity != 1 {
		t.Fatalf("expected one overage unit from the snapshot, got %+v", items)
	}
}
