package app

import (
	"path/filepath"
	"testing"

	"github.com/ordergrid/ordergrid/internal/db"
	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/security"
	internalsettings "github.com/ordergrid/ordergrid/internal/settings"
)

func TestCreateAdminUserWithConn_SeedsAdminAndSiteName(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "og-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	if errCreate := CreateAdminUserWithConn(conn, "admin", "password", "My Orders"); errCreate != nil {
		t.Fatalf("CreateAdminUserWithConn: %v", errCreate)
	}

	var admin models.Admin
	if errFind := conn.Where("username = ?", "admin").First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if !admin.Active {
		t.Fatalf("expected first admin to be active")
	}
	if !security.CheckPassword(admin.Password, "password") {
		t.Fatalf("expected stored password hash to verify")
	}

	var setting models.Setting
	if errFind := conn.Where("key = ?", internalsettings.SiteNameKey).First(&setting).Error; errFind != nil {
		t.Fatalf("find site name setting: %v", errFind)
	}
	if string(setting.Value) != `"My Orders"` {
		t.Fatalf("unexpected site name value: %s", setting.Value)
	}
}
