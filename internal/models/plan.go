package models

import "time"

// UnlimitedLocations marks a plan without a location cap.
const UnlimitedLocations = -1

// Plan represents a subscription plan configuration.
type Plan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string  `gorm:"type:varchar(255);not null;uniqueIndex"` // Plan name.
	MonthPrice  float64 `gorm:"type:decimal(10,2);not null;default:0"`  // Monthly price.
	YearPrice   float64 `gorm:"type:decimal(10,2);not null;default:0"`  // Yearly price.
	Description string  `gorm:"type:text"`                              // Plan description.

	LocationLimit     int     `gorm:"not null;default:0"`                    // Included locations (-1 means unlimited).
	OverageMonthPrice float64 `gorm:"type:decimal(10,2);not null;default:0"` // Monthly overage price per extra location.
	OverageYearPrice  float64 `gorm:"type:decimal(10,2);not null;default:0"` // Yearly overage price per extra location.

	SortOrder int  `gorm:"not null;default:0"`    // Display ordering weight.
	IsEnabled bool `gorm:"not null;default:true"` // Whether the plan is active.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Unlimited reports whether the plan has no location cap.
func (p *Plan) Unlimited() bool {
	return p.LocationLimit == UnlimitedLocations
}

// OveragePrice returns the per-location overage price for the cadence.
func (p *Plan) OveragePrice(yearly bool) float64 {
	if yearly {
		return p.OverageYearPrice
	}
	return p.OverageMonthPrice
}

// BasePrice returns the subscription base price for the cadence.
func (p *Plan) BasePrice(yearly bool) float64 {
	if yearly {
		return p.YearPrice
	}
	return p.MonthPrice
}
