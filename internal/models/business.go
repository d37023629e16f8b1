package models

import "time"

// Business represents a tenant account that owns locations.
type Business struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Name     string `gorm:"type:text"`                      // Display name.
	Email    string `gorm:"type:text;uniqueIndex"`          // Email address.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	PlanID *uint64 `gorm:"index"`             // Active billing plan ID.
	Plan   *Plan   `gorm:"foreignKey:PlanID"` // Active billing plan.

	YearlyBilling bool `gorm:"not null;default:false"` // Whether the plan is billed yearly.
	RateLimit     int  `gorm:"not null;default:0"`     // Order placement rate limit per second.

	Active bool `gorm:"not null;default:true"` // Whether the account can sign in.

	Locations []Location `gorm:"foreignKey:BusinessID"` // Registered locations.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
