package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SalesOrder struct {
	ID                    uint             `gorm:"primaryKey" json:"id"`
	Name                  string           `gorm:"type:varchar(40);uniqueIndex;not null" json:"name"`
	CustomerID            uint             `gorm:"not null;index" json:"customer_id"`
	Customer              Customer         `gorm:"foreignKey:CustomerID" json:"customer"`
	TransactionDate       time.Time        `gorm:"not null" json:"transaction_date"`
	DeliveryDate          time.Time        `gorm:"not null" json:"delivery_date"`
	Status                OrderStatus      `gorm:"type:varchar(32);not null;index" json:"status"`
	DocStatus             DocStatus        `gorm:"not null;default:0" json:"docstatus"`
	Currency              string           `gorm:"type:varchar(3);not null" json:"currency"`
	TotalQty              int              `gorm:"not null;default:0" json:"total_qty"`
	GrandTotal            decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"grand_total"`
	PerBilled             int              `gorm:"not null;default:0" json:"per_billed"`
	LoyaltyPointsToRedeem int              `gorm:"not null;default:0" json:"loyalty_points_to_redeem"`
	Note                  string           `gorm:"type:text" json:"note"`
	Source                string           `gorm:"type:varchar(20);not null;default:'line'" json:"source"`
	Items                 []SalesOrderItem `gorm:"foreignKey:SalesOrderID" json:"items"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// CanSettle reports whether staff may invoice or request payment.
func (o *SalesOrder) CanSettle() bool {
	return o.DocStatus == DocStatusSubmitted &&
		o.Status != OrderStatusClosed &&
		o.Status != OrderStatusCancelled
}

func (o *SalesOrder) IsBilled() bool {
	return o.PerBilled >= 100
}

type SalesOrderItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SalesOrderID uint            `gorm:"not null;index" json:"sales_order_id"`
	ItemCode     string          `gorm:"type:varchar(64);not null" json:"item_code"`
	ItemName     string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Qty          int             `gorm:"not null" json:"qty"`
	Rate         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"rate"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
}

// SeriesName builds a document name like SO-2026-00042.
func SeriesName(prefix string, at time.Time, id uint) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, at.Year(), id)
}
