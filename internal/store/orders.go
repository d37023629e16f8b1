package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
)

// ErrOrderNotFound indicates an order ID that does not belong to the
// business.
var ErrOrderNotFound = errors.New("store: order not found")

// OrderFilter narrows order list queries.
type OrderFilter struct {
	BusinessID uint64             // Restrict to one business when non-zero (All only).
	LocationID uint64             // Restrict to one location when non-zero.
	Status     models.OrderStatus // Restrict to one status when non-zero.
	Limit      int                // Page size; defaults to 50, capped at 200.
	Offset     int                // Page offset.
}

// GormOrderStore persists orders.
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore constructs a GormOrderStore.
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// Create inserts a new order.
func (s *GormOrderStore) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("store: nil order")
	}
	if order.PlacedAt.IsZero() {
		order.PlacedAt = time.Now().UTC()
	}
	if order.Status == 0 {
		order.Status = models.OrderStatusPlaced
	}
	if errCreate := s.db.WithContext(ctx).Create(order).Error; errCreate != nil {
		return fmt.Errorf("store: create order: %w", errCreate)
	}
	return nil
}

// ByBusinessID returns orders of a business, newest first.
func (s *GormOrderStore) ByBusinessID(ctx context.Context, businessID uint64, filter OrderFilter) ([]models.Order, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	q := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("business_id = ?", businessID)
	if filter.LocationID > 0 {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.Status > 0 {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("store: count orders: %w", errCount)
	}

	var rows []models.Order
	if errFind := q.Order("placed_at DESC, id DESC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("store: list orders: %w", errFind)
	}
	return rows, total, nil
}

// All returns orders across businesses, newest first. Used by the
// operator API.
func (s *GormOrderStore) All(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	q := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.BusinessID > 0 {
		q = q.Where("business_id = ?", filter.BusinessID)
	}
	if filter.LocationID > 0 {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.Status > 0 {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("store: count orders: %w", errCount)
	}

	var rows []models.Order
	if errFind := q.Order("placed_at DESC, id DESC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("store: list orders: %w", errFind)
	}
	return rows, total, nil
}

// UpdateStatus moves an order of a business to a new status and reports
// whether a row changed.
func (s *GormOrderStore) UpdateStatus(ctx context.Context, businessID, id uint64, status models.OrderStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("store: update order status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
