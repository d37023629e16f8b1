// Package usage records verified orders and keeps per-location usage
// counters in step with them.
package usage

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
	"github.com/ordergrid/ordergrid/internal/verification"
)

// ErrNotAuthorized indicates the verification result does not authorize
// attributing an order to a location.
var ErrNotAuthorized = errors.New("usage: verification did not authorize the order")

// Recorder persists orders together with their usage counter update.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder backed by GORM.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordOrder creates an order attributed to the verified location and
// bumps that location's usage counter in the same transaction, so the
// counter never drifts from the order rows.
func (r *Recorder) RecordOrder(ctx context.Context, businessID uint64, result verification.Result, total float64) (models.Order, error) {
	if r == nil || r.db == nil {
		return models.Order{}, errors.New("usage: recorder not initialized")
	}
	if !result.IsValid || result.LocationID == 0 {
		return models.Order{}, ErrNotAuthorized
	}

	now := time.Now().UTC()
	order := models.Order{
		BusinessID:         businessID,
		LocationID:         result.LocationID,
		Status:             models.OrderStatusPlaced,
		VerificationMethod: string(result.Method),
		Total:              total,
		PlacedAt:           now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&order).Error; errCreate != nil {
			return errCreate
		}
		res := tx.Model(&models.Location{}).
			Where("id = ? AND business_id = ?", result.LocationID, businessID).
			Updates(map[string]any{
				"monthly_usage": gorm.Expr("monthly_usage + ?", 1),
				"updated_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("location does not belong to business")
		}
		return nil
	}); errTx != nil {
		log.WithError(errTx).Warn("usage: failed to record order")
		return models.Order{}, errTx
	}
	return order, nil
}
