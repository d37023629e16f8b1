// Package store persists locations and orders through GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
)

// ErrLocationNotFound indicates a location ID that does not belong to
// the business.
var ErrLocationNotFound = errors.New("store: location not found")

// GormLocationStore persists business locations.
type GormLocationStore struct {
	db *gorm.DB
}

// NewGormLocationStore constructs a GormLocationStore.
func NewGormLocationStore(db *gorm.DB) *GormLocationStore {
	return &GormLocationStore{db: db}
}

// ByBusinessID returns every location of a business.
func (s *GormLocationStore) ByBusinessID(ctx context.Context, businessID uint64) ([]models.Location, error) {
	var rows []models.Location
	if errFind := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list locations: %w", errFind)
	}
	return rows, nil
}

// ActiveByBusinessID returns the billing-active locations of a business.
func (s *GormLocationStore) ActiveByBusinessID(ctx context.Context, businessID uint64) ([]models.Location, error) {
	var rows []models.Location
	if errFind := s.db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list active locations: %w", errFind)
	}
	return rows, nil
}

// CountActive returns how many billing-active locations a business has.
func (s *GormLocationStore) CountActive(ctx context.Context, businessID uint64) (int, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("store: count active locations: %w", errCount)
	}
	return int(count), nil
}

// ByID returns one location of a business.
func (s *GormLocationStore) ByID(ctx context.Context, businessID, id uint64) (models.Location, error) {
	var row models.Location
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Location{}, ErrLocationNotFound
		}
		return models.Location{}, fmt.Errorf("store: find location: %w", errFind)
	}
	return row, nil
}

// Create inserts a new location.
func (s *GormLocationStore) Create(ctx context.Context, location *models.Location) error {
	if location == nil {
		return fmt.Errorf("store: nil location")
	}
	if errCreate := s.db.WithContext(ctx).Create(location).Error; errCreate != nil {
		return fmt.Errorf("store: create location: %w", errCreate)
	}
	return nil
}

// Update applies a partial update to a location of a business and
// reports whether a row changed.
func (s *GormLocationStore) Update(ctx context.Context, businessID, id uint64, updates map[string]any) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}
	updates["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("store: update location: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetActive flips the billing-active flag of a location and stamps the
// matching transition time. Reports whether a row changed.
func (s *GormLocationStore) SetActive(ctx context.Context, businessID, id uint64, active bool) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"is_active":  active,
		"updated_at": now,
	}
	if active {
		updates["activated_at"] = now
	} else {
		updates["deactivated_at"] = now
	}
	res := s.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("id = ? AND business_id = ? AND is_active = ?", id, businessID, !active).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("store: set location active: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IncrementMonthlyUsage atomically bumps a location's order counter.
func (s *GormLocationStore) IncrementMonthlyUsage(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"monthly_usage": gorm.Expr("monthly_usage + ?", 1),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("store: increment monthly usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// ResetMonthlyUsage zeroes the order counters of every location of a
// business and returns how many rows changed. Called at the billing
// period boundary.
func (s *GormLocationStore) ResetMonthlyUsage(ctx context.Context, businessID uint64) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("business_id = ?", businessID).
		Updates(map[string]any{
			"monthly_usage": 0,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("store: reset monthly usage: %w", res.Error)
	}
	return res.RowsAffected, nil
}
