package usage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ordergrid/ordergrid/internal/db"
	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/verification"
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

func seedBusinessAndLocation(t *testing.T, conn *gorm.DB) (models.Business, models.Location) {
	t.Helper()
	business := models.Business{Username: "acme", Password: "hashed", Active: true}
	if errCreate := conn.Create(&business).Error; errCreate != nil {
		t.Fatalf("seed business: %v", errCreate)
	}
	location := models.Location{BusinessID: business.ID, Name: "Downtown", QRCodePrimary: "qr-1", IsActive: true}
	if errCreate := conn.Create(&location).Error; errCreate != nil {
		t.Fatalf("seed location: %v", errCreate)
	}
	return business, location
}

func TestRecordOrder_CreatesOrderAndBumpsCounter(t *testing.T) {
	conn := openTestDB(t)
	business, location := seedBusinessAndLocation(t, conn)
	recorder := NewRecorder(conn)

	result := verification.Result{
		IsValid:    true,
		LocationID: location.ID,
		BusinessID: business.ID,
		Method:     verification.MethodQRCode,
	}
	order, errRecord := recorder.RecordOrder(context.Background(), business.ID, result, 18.75)
	if errRecord != nil {
		t.Fatalf("RecordOrder: %v", errRecord)
	}
	if order.ID == 0 || order.Status != models.OrderStatusPlaced {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.VerificationMethod != "qr_code" {
		t.Fatalf("expected qr_code method, got %s", order.VerificationMethod)
	}

	var got models.Location
	if errFind := conn.First(&got, location.ID).Error; errFind != nil {
		t.Fatalf("find location: %v", errFind)
	}
	if got.MonthlyUsage != 1 {
		t.Fatalf("expected counter 1, got %d", got.MonthlyUsage)
	}
}

func TestRecordOrder_ManualAttribution(t *testing.T) {
	conn := openTestDB(t)
	business, location := seedBusinessAndLocation(t, conn)
	recorder := NewRecorder(conn)

	result := verification.Result{
		IsValid:    true,
		LocationID: location.ID,
		BusinessID: business.ID,
		Method:     verification.MethodManual,
	}
	order, errRecord := recorder.RecordOrder(context.Background(), business.ID, result, 25)
	if errRecord != nil {
		t.Fatalf("RecordOrder: %v", errRecord)
	}
	if order.VerificationMethod != "manual" {
		t.Fatalf("expected manual method, got %s", order.VerificationMethod)
	}

	var got models.Location
	if errFind := conn.First(&got, location.ID).Error; errFind != nil {
		t.Fatalf("find location: %v", errFind)
	}
	if got.MonthlyUsage != 1 {
		t.Fatalf("expected counter 1, got %d", got.MonthlyUsage)
	}
}

func TestRecordOrder_RejectsUnverifiedResult(t *testing.T) {
	conn := openTestDB(t)
	business, location := seedBusinessAndLocation(t, conn)
	recorder := NewRecorder(conn)

	result := verification.Result{
		IsValid:    false,
		LocationID: location.ID,
		Method:     verification.MethodIPAddress,
	}
	if _, errRecord := recorder.RecordOrder(context.Background(), business.ID, result, 10); !errors.Is(errRecord, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", errRecord)
	}

	var count int64
	if errCount := conn.Model(&models.Order{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count orders: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no orders, got %d", count)
	}
}

func TestRecordOrder_RollsBackOnForeignLocation(t *testing.T) {
	conn := openTestDB(t)
	business, _ := seedBusinessAndLocation(t, conn)
	recorder := NewRecorder(conn)

	other := models.Business{Username: "rival", Password: "hashed", Active: true}
	if errCreate := conn.Create(&other).Error; errCreate != nil {
		t.Fatalf("seed other business: %v", errCreate)
	}
	foreign := models.Location{BusinessID: other.ID, Name: "Rival", QRCodePrimary: "qr-x", IsActive: true}
	if errCreate := conn.Create(&foreign).Error; errCreate != nil {
		t.Fatalf("seed foreign location: %v", errCreate)
	}

	result := verification.Result{
		IsValid:    true,
		LocationID: foreign.ID,
		Method:     verification.MethodGPS,
	}
	if _, errRecord := recorder.RecordOrder(context.Background(), business.ID, result, 10); errRecord == nil {
		t.Fatal("expected error for a location owned by another business")
	}

	var count int64
	if errCount := conn.Model(&models.Order{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count orders: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected transaction rollback, got %d orders", count)
	}
}
