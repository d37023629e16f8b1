package ratelimit

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
)

// ResolveLimit resolves the effective order placement limit for a
// business: the per-business override first, then the settings default.
// A zero limit means unlimited.
func ResolveLimit(ctx context.Context, db *gorm.DB, businessID uint64) (Decision, error) {
	if db == nil || businessID == 0 {
		return Decision{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	businessLimit, errBusiness := loadBusinessRateLimit(ctx, db, businessID)
	if errBusiness != nil {
		return Decision{}, errBusiness
	}
	if businessLimit > 0 {
		return Decision{Limit: businessLimit, Scope: ScopeBusiness}, nil
	}

	settingsLimit := DefaultSettingsLimit()
	if settingsLimit > 0 {
		return Decision{Limit: settingsLimit, Scope: ScopeBusiness}, nil
	}
	return Decision{}, nil
}

func loadBusinessRateLimit(ctx context.Context, db *gorm.DB, businessID uint64) (int, error) {
	type businessRow struct {
		RateLimit int
	}
	var row businessRow
	if errFind := db.WithContext(ctx).
		Model(&models.Business{}).
		Select("rate_limit").
		Where("id = ?", businessID).
		Take(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, errFind
	}
	return row.RateLimit, nil
}
