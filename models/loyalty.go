package models

import "time"

const (
	LoyaltyEarn   = "earn"
	LoyaltyRedeem = "redeem"
)

// LoyaltyEntry is one movement on a customer's point ledger. Redemptions
// are stored as negative points.
type LoyaltyEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerID   uint      `gorm:"not null;index" json:"customer_id"`
	Points       int       `gorm:"not null" json:"points"`
	Kind         string    `gorm:"type:varchar(10);not null" json:"kind"`
	SalesOrderID *uint     `gorm:"index" json:"sales_order_id,omitempty"`
	InvoiceID    *uint     `gorm:"index" json:"invoice_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
