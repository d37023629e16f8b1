package models

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus int

// OrderStatus constants define order lifecycle states.
const (
	// OrderStatusPlaced marks a newly placed order.
	OrderStatusPlaced OrderStatus = 1
	// OrderStatusCompleted marks a fulfilled order.
	OrderStatusCompleted OrderStatus = 2
	// OrderStatusCancelled marks a cancelled order.
	OrderStatusCancelled OrderStatus = 3
)

// Order records a customer order attributed to a verified location.
type Order struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BusinessID uint64   `gorm:"not null;index"`        // Owning business ID.
	Business   Business `gorm:"foreignKey:BusinessID"` // Owning business record.

	LocationID uint64   `gorm:"not null;index"`        // Verified location ID.
	Location   Location `gorm:"foreignKey:LocationID"` // Verified location record.

	Status OrderStatus `gorm:"not null;default:1"` // Current order status.

	VerificationMethod string  `gorm:"type:varchar(32);not null"`             // Method that attributed the location.
	Total              float64 `gorm:"type:decimal(10,2);not null;default:0"` // Order total amount.

	PlacedAt time.Time `gorm:"not null;index"` // When the order was placed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
