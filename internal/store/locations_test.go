package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ordergrid/ordergrid/internal/db"
	"github.com/ordergrid/ordergrid/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "og-test.db")
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedBusiness(t *testing.T, conn *gorm.DB) models.Business {
	t.Helper()
	business := models.Business{
		Username: "acme",
		Name:     "Acme Pizza",
		Email:    "owner@acme.test",
		Password: "hashed",
		Active:   true,
	}
	if errCreate := conn.Create(&business).Error; errCreate != nil {
		t.Fatalf("seed business: %v", errCreate)
	}
	return business
}

func TestLocationStore_ActiveByBusinessID(t *testing.T) {
	conn := openTestDB(t)
	business := seedBusiness(t, conn)
	s := NewGormLocationStore(conn)
	ctx := context.Background()

	active := models.Location{BusinessID: business.ID, Name: "Downtown", QRCodePrimary: "qr-1", IsActive: true}
	inactive := models.Location{BusinessID: business.ID, Name: "Closed", QRCodePrimary: "qr-2", IsActive: false}
	if errCreate := s.Create(ctx, &active); errCreate != nil {
		t.Fatalf("create active: %v", errCreate)
	}
	if errCreate := s.Create(ctx, &inactive); errCreate != nil {
		t.Fatalf("create inactive: %v", errCreate)
	}

	rows, errList := s.ActiveByBusinessID(ctx, business.ID)
	if errList != nil {
		t.Fatalf("ActiveByBusinessID: %v", errList)
	}
	if len(rows) != 1 || rows[0].Name != "Downtown" {
		t.Fatalf("expected only the active location, got %+v", rows)
	}

	count, errCount := s.CountActive(ctx, business.ID)
	if errCount != nil {
		t.Fatalf("CountActive: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected 1 active location, got %d", count)
	}
}

func TestLocationStore_UpdateScopedToBusiness(t *testing.T) {
	conn := openTestDB(t)
	business := seedBusiness(t, conn)
	s := NewGormLocationStore(conn)
	ctx := context.Background()

	loc := models.Location{BusinessID: business.ID, Name: "Downtown", QRCodePrimary: "qr-1", IsActive: true}
	if errCreate := s.Create(ctx, &loc); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	changed, errUpdate := s.Update(ctx, business.ID, loc.ID, map[string]any{"name": "Uptown"})
	if errUpdate != nil {
		t.Fatalf("Update: %v", errUpdate)
	}
	if !changed {
		t.Fatal("expected a row change")
	}

	changed, errUpdate = s.Update(ctx, business.ID+1, loc.ID, map[string]any{"name": "Hijack"})
	if errUpdate != nil {
		t.Fatalf("Update other business: %v", errUpdate)
	}
	if changed {
		t.Fatal("expected no change for another business's ID")
	}

	got, errFind := s.ByID(ctx, business.ID, loc.ID)
	if errFind != nil {
		t.Fatalf("ByID: %v", errFind)
	}
	if got.Name != "Uptown" {
		t.Fatalf("expected renamed location, got %s", got.Name)
	}
}

func TestLocationStore_SetActiveStampsTransitions(t *testing.T) {
	conn := openTestDB(t)
	business := seedBusiness(t, conn)
	s := NewGormLocationStore(conn)
	ctx := context.Background()

	loc := models.Location{BusinessID: business.ID, Name: "Downtown", QRCodePrimary: "qr-1", IsActive: true}
	if errCreate := s.Create(ctx, &loc); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	changed, errSet := s.SetActive(ctx, business.ID, loc.ID, false)
	if errSet != nil {
		t.Fatalf("SetActive false: %v", errSet)
	}
	if !changed {
		t.Fatal("expected deactivation to change the row")
	}

	got, errFind := s.ByID(ctx, business.ID, loc.ID)
	if errFind != nil {
		t.Fatalf("ByID: %v", errFind)
	}
	if got.IsActive || got.DeactivatedAt == nil {
		t.Fatalf("expected inactive with deactivation time, got %+v", got)
	}

	// Deactivating an already inactive location is a no-op.
	changed, errSet = s.SetActive(ctx, business.ID, loc.ID, false)
	if errSet != nil {
		t.Fatalf("SetActive repeat: %v", errSet)
	}
	if changed {
		t.Fatal("expected repeated deactivation to change nothing")
	}

	changed, errSet = s.SetActive(ctx, business.ID, loc.ID, true)
	if errSet != nil {
		t.Fatalf("SetActive true: %v", errSet)
	}
	if !changed {
		t.Fatal("expected reactivation to change the row")
	}
	got, _ = s.ByID(ctx, business.ID, loc.ID)
	if !got.IsActive || got.ActivatedAt == nil {
		t.Fatalf("expected active with activation time, got %+v", got)
	}
}

func TestLocationStore_UsageCounters(t *testing.T) {
	conn := openTestDB(t)
	business := seedBusiness(t, conn)
	s := NewGormLocationStore(conn)
	ctx := context.Background()

	loc := models.Location{BusinessID: business.ID, Name: "Downtown", QRCodePrimary: "qr-1", IsActive: true}
	if errCreate := s.Create(ctx, &loc); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	for i := 0; i < 3; i++ {
		if errInc := s.IncrementMonthlyUsage(ctx, loc.ID); errInc != nil {
			t.Fatalf("IncrementMonthlyUsage: %v", errInc)
		}
	}
	got, errFind := s.ByID(ctx, business.ID, loc.ID)
	if errFind != nil {
		t.Fatalf("ByID: %v", errFind)
	}
	if got.MonthlyUsage != 3 {
		t.Fatalf("expected counter 3, got %d", got.MonthlyUsage)
	}

	if errInc := s.IncrementMonthlyUsage(ctx, 9999); errInc == nil {
		t.Fatal("expected error for unknown location")
	}

	reset, errReset := s.ResetMonthlyUsage(ctx, business.ID)
	if errReset != nil {
		t.Fatalf("ResetMonthlyUsage: %v", errReset)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset row, got %d", reset)
	}
	got, _ = s.ByID(ctx, business.ID, loc.ID)
	if got.MonthlyUsage != 0 {
		t.Fatalf("expected counter reset, got %d", got.MonthlyUsage)
	}
}

func TestOrderStore_CreateAndList(t *testing.T) {
	conn := openTestDB(t)
	business := seedBusiness(t, conn)
	locations := NewGormLocationStore(conn)
	orders := NewGormOrderStore(conn)
	ctx := context.Background()

	loc := models.Location{BusinessID: business.ID, Name: "Downtown", QRCodePrimary: "qr-1", IsActive: true}
	if errCreate := locations.Create(ctx, &loc); errCreate != nil {
		t.Fatalf("create location: %v", errCreate)
	}

	order := models.Order{
		BusinessID:         business.ID,
		LocationID:         loc.ID,
		VerificationMethod: "qr_code",
		Total:              42.50,
	}
	if errCreate := orders.Create(ctx, &order); errCreate != nil {
		t.Fatalf("create order: %v", errCreate)
	}
	if order.Status != models.OrderStatusPlaced {
		t.Fatalf("expected placed status default, got %d", order.Status)
	}
	if order.PlacedAt.IsZero() {
		t.Fatal("expected placed_at default")
	}

	rows, total, errList := orders.ByBusinessID(ctx, business.ID, OrderFilter{})
	if errList != nil {
		t.Fatalf("ByBusinessID: %v", errList)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected one order, got total=%d rows=%d", total, len(rows))
	}

	rows, _, errList = orders.ByBusinessID(ctx, business.ID, OrderFilter{LocationID: loc.ID + 1})
	if errList != nil {
		t.Fatalf("ByBusinessID filtered: %v", errList)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no orders for other location, got %d", len(rows))
	}
}

func TestOrderStore_AllSpansBusinesses(t *testing.T) {
	conn := openTestDB(t)
	first := seedBusiness(t, conn)
	second := models.Business{
		Username: "other",
		Name:     "Other Diner",
		Email:    "owner@other.test",
		Password: "hashed",
		Active:   true,
	}
	if errCreate := conn.Create(&second).Error; errCreate != nil {
		t.Fatalf("seed second business: %v", errCreate)
	}

	locations := NewGormLocationStore(conn)
	orders := NewGormOrderStore(conn)
	ctx := context.Background()

	for _, business := range []models.Business{first, second} {
		loc := models.Location{BusinessID: business.ID, Name: "Main", QRCodePrimary: "qr-" + business.Username, IsActive: true}
		if errCreate := locations.Create(ctx, &loc); errCreate != nil {
			t.Fatalf("create location: %v", errCreate)
		}
		order := models.Order{BusinessID: business.ID, LocationID: loc.ID, VerificationMethod: "qr_code"}
		if errCreate := orders.Create(ctx, &order); errCreate != nil {
			t.Fatalf("create order: %v", errCreate)
		}
	}

	_, total, errAll := orders.All(ctx, OrderFilter{})
	if errAll != nil {
		t.Fatalf("All: %v", errAll)
	}
	if total != 2 {
		t.Fatalf("expected two orders across businesses, got %d", total)
	}

	rows, total, errAll := orders.All(ctx, OrderFilter{BusinessID: second.ID})
	if errAll != nil {
		t.Fatalf("All filtered: %v", errAll)
	}
	if total != 1 || len(rows) != 1 || rows[0].BusinessID != second.ID {
		t.Fatalf("expected only the second business's order, got total=%d rows=%d", total, len(rows))
	}
}

func TestOrderStore_UpdateStatus(t *testing.T) {
	conn := openTestDB(t)
	business := seedBusiness(t, conn)
	locations := NewGormLocationStore(conn)
	orders := NewGormOrderStore(conn)
	ctx := context.Background()

	loc := models.Location{BusinessID: business.ID, Name: "Downtown", QRCodePrimary: "qr-1", IsActive: true}
	if errCreate := locations.Create(ctx, &loc); errCreate != nil {
		t.Fatalf("create location: %v", errCreate)
	}
	order := models.Order{BusinessID: business.ID, LocationID: loc.ID, VerificationMethod: "gps"}
	if errCreate := orders.Create(ctx, &order); errCreate != nil {
		t.Fatalf("create order: %v", errCreate)
	}

	changed, errUpdate := orders.UpdateStatus(ctx, business.ID, order.ID, models.OrderStatusCompleted)
	if errUpdate != nil {
		t.Fatalf("UpdateStatus: %v", errUpdate)
	}
	if !changed {
		t.Fatal("expected status change")
	}

	changed, errUpdate = orders.UpdateStatus(ctx, business.ID+1, order.ID, models.OrderStatusCancelled)
	if errUpdate != nil {
		t.Fatalf("UpdateStatus other business: %v", errUpdate)
	}
	if changed {
		t.Fatal("expected no change for another business's order")
	}
}
