package models

import (
	"time"

	"gorm.io/datatypes"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

// InvoiceStatus constants define invoice lifecycle states.
const (
	// InvoiceStatusDraft marks a freshly generated invoice.
	InvoiceStatusDraft InvoiceStatus = "draft"
	// InvoiceStatusSent marks an invoice delivered to the business.
	InvoiceStatusSent InvoiceStatus = "sent"
	// InvoiceStatusPaid marks a settled invoice.
	InvoiceStatusPaid InvoiceStatus = "paid"
	// InvoiceStatusOverdue marks an invoice past its due date.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	// InvoiceStatusCancelled marks a voided invoice.
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice records a billing-period charge for a business.
type Invoice struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BusinessID uint64   `gorm:"not null;index"`        // Billed business ID.
	Business   Business `gorm:"foreignKey:BusinessID"` // Billed business record.

	Number string `gorm:"type:varchar(64);not null;uniqueIndex"` // Invoice number.

	LineItems datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Line item list.

	Subtotal float64 `gorm:"type:decimal(10,2);not null;default:0"` // Sum of line item amounts.
	Tax      float64 `gorm:"type:decimal(10,2);not null;default:0"` // Tax amount.
	Total    float64 `gorm:"type:decimal(10,2);not null;default:0"` // Subtotal plus tax.

	Status InvoiceStatus `gorm:"type:varchar(16);not null;default:'draft'"` // Current invoice status.

	PeriodStart time.Time `gorm:"not null"` // Billing period start.
	PeriodEnd   time.Time `gorm:"not null"` // Billing period end.

	IssuedAt time.Time `gorm:"not null"` // When the invoice was issued.
	DueDate  time.Time `gorm:"not null"` // Payment due date.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
