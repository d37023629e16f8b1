package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
	internalsettings "github.com/ordergrid/ordergrid/internal/settings"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// allModels lists every migrated table in dependency order.
func allModels() []any {
	return []any{
		&models.Admin{},
		&models.Plan{},
		&models.Business{},
		&models.Location{},
		&models.Order{},
		&models.Invoice{},
		&models.Setting{},
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(allModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureDefaultPlans(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSiteNameSetting(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureRateLimitSetting(conn); errSeed != nil {
		return errSeed
	}

	_ = conn.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_plans_sort_order_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_plans_sort_order_created_at
				ON plans (sort_order ASC, created_at DESC)
			`,
		},
		{
			name: "idx_plans_is_enabled_sort_order_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_plans_is_enabled_sort_order_created_at
				ON plans (is_enabled, sort_order ASC, created_at DESC)
			`,
		},
		{
			name: "idx_locations_business_id_is_active",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_locations_business_id_is_active
				ON locations (business_id, is_active)
			`,
		},
		{
			name: "idx_locations_business_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_locations_business_id_created_at
				ON locations (business_id, created_at DESC)
			`,
		},
		{
			name: "idx_orders_business_id_placed_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_orders_business_id_placed_at
				ON orders (business_id, placed_at DESC)
			`,
		},
		{
			name: "idx_orders_location_id_placed_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_orders_location_id_placed_at
				ON orders (location_id, placed_at DESC)
			`,
		},
		{
			name: "idx_invoices_business_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_invoices_business_id_created_at
				ON invoices (business_id, created_at DESC)
			`,
		},
		{
			name: "idx_invoices_status_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_invoices_status_created_at
				ON invoices (status, created_at DESC)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	// trgmIndex defines trigram and fallback index statements.
	type trgmIndex struct {
		name     string // Logical index name.
		trgmSQL  string // Trigram index SQL.
		lowerSQL string // Lowercase fallback index SQL.
	}
	trgmIndexes := []trgmIndex{
		{
			name: "idx_businesses_username",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_businesses_username_trgm
				ON businesses USING gin (username gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_businesses_username_lower
				ON businesses (LOWER(username))
			`,
		},
		{
			name: "idx_businesses_email",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_businesses_email_trgm
				ON businesses USING gin (email gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_businesses_email_lower
				ON businesses (LOWER(email))
			`,
		},
		{
			name: "idx_locations_name",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_locations_name_trgm
				ON locations USING gin (name gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_locations_name_lower
				ON locations (LOWER(name))
			`,
		},
		{
			name: "idx_admins_username",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_admins_username_trgm
				ON admins USING gin (username gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_admins_username_lower
				ON admins (LOWER(username))
			`,
		},
	}
	for _, item := range trgmIndexes {
		if errIdx := conn.Exec(item.trgmSQL).Error; errIdx != nil {
			if errLower := conn.Exec(item.lowerSQL).Error; errLower != nil {
				return fmt.Errorf("db: create index %s: %w", item.name, errLower)
			}
		}
	}

	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(allModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureDefaultPlans(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSiteNameSetting(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureRateLimitSetting(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_plans_sort_order_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_plans_sort_order_created_at
				ON plans (sort_order ASC, created_at DESC)
			`,
		},
		{
			name: "idx_plans_is_enabled_sort_order_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_plans_is_enabled_sort_order_created_at
				ON plans (is_enabled, sort_order ASC, created_at DESC)
			`,
		},
		{
			name: "idx_locations_business_id_is_active",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_locations_business_id_is_active
				ON locations (business_id, is_active)
			`,
		},
		{
			name: "idx_locations_business_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_locations_business_id_created_at
				ON locations (business_id, created_at DESC)
			`,
		},
		{
			name: "idx_orders_business_id_placed_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_orders_business_id_placed_at
				ON orders (business_id, placed_at DESC)
			`,
		},
		{
			name: "idx_orders_location_id_placed_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_orders_location_id_placed_at
				ON orders (location_id, placed_at DESC)
			`,
		},
		{
			name: "idx_invoices_business_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_invoices_business_id_created_at
				ON invoices (business_id, created_at DESC)
			`,
		},
		{
			name: "idx_invoices_status_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_invoices_status_created_at
				ON invoices (status, created_at DESC)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// ensureDefaultPlans seeds the plan catalog when it is empty.
func ensureDefaultPlans(conn *gorm.DB) error {
	var count int64
	if errCount := conn.Model(&models.Plan{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("db: count plans: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	plans := []models.Plan{
		{
			Name:              "starter",
			MonthPrice:        29,
			YearPrice:         290,
			Description:       "Up to 3 locations for small businesses",
			LocationLimit:     3,
			OverageMonthPrice: 10,
			OverageYearPrice:  100,
			SortOrder:         10,
			IsEnabled:         true,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		{
			Name:              "growth",
			MonthPrice:        79,
			YearPrice:         790,
			Description:       "Up to 10 locations for growing chains",
			LocationLimit:     10,
			OverageMonthPrice: 8,
			OverageYearPrice:  80,
			SortOrder:         20,
			IsEnabled:         true,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		{
			Name:          "enterprise",
			MonthPrice:    199,
			YearPrice:     1990,
			Description:   "Unlimited locations",
			LocationLimit: models.UnlimitedLocations,
			SortOrder:     30,
			IsEnabled:     true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
	if errCreate := conn.Create(&plans).Error; errCreate != nil {
		return fmt.Errorf("db: seed plans: %w", errCreate)
	}
	return nil
}

// ensureSiteNameSetting ensures SITE_NAME exists with the default.
func ensureSiteNameSetting(conn *gorm.DB) error {
	return ensureStringSetting(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName)
}

// ensureRateLimitSetting ensures RATE_LIMIT exists with the default.
func ensureRateLimitSetting(conn *gorm.DB) error {
	return ensureIntSetting(conn, internalsettings.RateLimitKey, internalsettings.DefaultRateLimit)
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureSetting(conn, key, json.RawMessage(payload))
}

// ensureStringSetting ensures a string setting exists and defaults when empty.
func ensureStringSetting(conn *gorm.DB, key string, value string) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureSetting(conn, key, json.RawMessage(payload))
}

// ensureSetting creates a setting or backfills an empty value.
func ensureSetting(conn *gorm.DB, key string, rawValue json.RawMessage) error {
	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
