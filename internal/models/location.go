package models

import "time"

// Location represents a physical business location with billing state.
type Location struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BusinessID uint64   `gorm:"not null;index"`        // Owning business ID.
	Business   Business `gorm:"foreignKey:BusinessID"` // Owning business record.

	Name    string `gorm:"type:varchar(255);not null"` // Location display name.
	Address string `gorm:"type:varchar(255)"`          // Street address.

	Latitude  float64 `gorm:"type:decimal(10,7);not null;default:0"` // Latitude in degrees.
	Longitude float64 `gorm:"type:decimal(10,7);not null;default:0"` // Longitude in degrees.

	QRCodePrimary string `gorm:"type:varchar(255);not null;index"` // Primary QR code identifier.
	QRCodeBackup  string `gorm:"type:varchar(255)"`                // Optional backup QR code identifier.

	IsActive      bool       `gorm:"not null;default:true"` // Whether the location is billing-active.
	MonthlyUsage  int64      `gorm:"not null;default:0"`    // Orders recorded in the current period.
	ActivatedAt   *time.Time // When billing was last activated.
	DeactivatedAt *time.Time // When billing was last deactivated.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
