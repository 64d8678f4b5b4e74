package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusUnpaid = "Unpaid"
	InvoiceStatusPaid   = "Paid"
)

// Invoice is the sales invoice produced by settlement. One per sales order.
type Invoice struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"name"`
	SalesOrderID      uint            `gorm:"uniqueIndex;not null" json:"sales_order_id"`
	SalesOrder        SalesOrder      `gorm:"foreignKey:SalesOrderID" json:"-"`
	CustomerID        uint            `gorm:"not null;index" json:"customer_id"`
	GrandTotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"grand_total"`
	LoyaltyPoints     int             `gorm:"not null;default:0" json:"loyalty_points"`
	LoyaltyAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"loyalty_amount"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"outstanding_amount"`
	Status            string          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedBy         uint            `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type PaymentEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"name"`
	InvoiceID     uint            `gorm:"not null;index" json:"invoice_id"`
	ModeOfPayment string          `gorm:"type:varchar(64);not null" json:"mode_of_payment"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"paid_amount"`
	Reference     string          `gorm:"type:varchar(64)" json:"reference"`
	CreatedAt     time.Time       `json:"created_at"`
}
