package db

import (
	"path/filepath"
	"testing"

	"github.com/ordergrid/ordergrid/internal/models"
)

func TestMigrate_SeedsPlanCatalog(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "og-test.db")
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	var plans []models.Plan
	if errFind := conn.Order("sort_order ASC").Find(&plans).Error; errFind != nil {
		t.Fatalf("find plans: %v", errFind)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 seeded plans, got %d", len(plans))
	}
	if plans[0].Name != "starter" || plans[0].LocationLimit != 3 {
		t.Fatalf("unexpected starter plan: %+v", plans[0])
	}
	if plans[2].LocationLimit != models.UnlimitedLocations {
		t.Fatalf("expected unlimited top tier, got %d", plans[2].LocationLimit)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "og-test.db")
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errFirst := Migrate(conn); errFirst != nil {
		t.Fatalf("first migrate: %v", errFirst)
	}
	if errSecond := Migrate(conn); errSecond != nil {
		t.Fatalf("second migrate: %v", errSecond)
	}

	var count int64
	if errCount := conn.Model(&models.Plan{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count plans: %v", errCount)
	}
	if count != 3 {
		t.Fatalf("expected seed to run once, got %d plans", count)
	}
}

func TestMigrate_SeedsSettings(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "og-test.db")
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	var setting models.Setting
	if errFind := conn.Where("key = ?", "SITE_NAME").First(&setting).Error; errFind != nil {
		t.Fatalf("find SITE_NAME: %v", errFind)
	}
	if string(setting.Value) != `"OrderGrid"` {
		t.Fatalf("unexpected SITE_NAME value: %s", setting.Value)
	}
}
