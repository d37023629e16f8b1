// Package billing implements subscription charge calculation, plan limit
// checks, proration, usage reporting and invoice generation.
package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
)

// ErrPlanNotFound indicates an unknown or disabled plan ID.
var ErrPlanNotFound = errors.New("billing: plan not found")

// Catalog resolves subscription plans.
type Catalog interface {
	// PlanByID returns the enabled plan with the given ID.
	PlanByID(ctx context.Context, id uint64) (models.Plan, error)
	// Plans returns all enabled plans ordered by SortOrder ascending.
	Plans(ctx context.Context) ([]models.Plan, error)
}

// GormCatalog reads plans from the database.
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog constructs a GormCatalog.
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// PlanByID returns the enabled plan with the given ID.
func (c *GormCatalog) PlanByID(ctx context.Context, id uint64) (models.Plan, error) {
	var plan models.Plan
	if errFind := c.db.WithContext(ctx).
		Where("id = ? AND is_enabled = ?", id, true).
		First(&plan).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Plan{}, fmt.Errorf("%w: id=%d", ErrPlanNotFound, id)
		}
		return models.Plan{}, errFind
	}
	return plan, nil
}

// Plans returns all enabled plans ordered by SortOrder ascending.
func (c *GormCatalog) Plans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if errFind := c.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&plans).Error; errFind != nil {
		return nil, errFind
	}
	return plans, nil
}

// StaticCatalog serves plans from a fixed in-memory set.
type StaticCatalog struct {
	plans []models.Plan
}

// NewStaticCatalog constructs a StaticCatalog from the given plans.
func NewStaticCatalog(plans ...models.Plan) *StaticCatalog {
	sorted := make([]models.Plan, len(plans))
	copy(sorted, plans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SortOrder != sorted[j].SortOrder {
			return sorted[i].SortOrder < sorted[j].SortOrder
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &StaticCatalog{plans: sorted}
}

// PlanByID returns the enabled plan with the given ID.
func (c *StaticCatalog) PlanByID(_ context.Context, id uint64) (models.Plan, error) {
	for _, plan := range c.plans {
		if plan.ID == id && plan.IsEnabled {
			return plan, nil
		}
	}
	return models.Plan{}, fmt.Errorf("%w: id=%d", ErrPlanNotFound, id)
}

// Plans returns all enabled plans ordered by SortOrder ascending.
func (c *StaticCatalog) Plans(_ context.Context) ([]models.Plan, error) {
	out := make([]models.Plan, 0, len(c.plans))
	for _, plan := range c.plans {
		if plan.IsEnabled {
			out = append(out, plan)
		}
	}
	return out, nil
}
