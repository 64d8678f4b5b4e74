package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentRequestRequested = "Requested"
	PaymentRequestExpired   = "Expired"
	PaymentRequestSettled   = "Settled"
)

type PaymentRequest struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Reference      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference"`
	SalesOrderID   uint            `gorm:"not null;index" json:"sales_order_id"`
	AmountDue      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_due"`
	PointsToRedeem int             `gorm:"not null;default:0" json:"points_to_redeem"`
	Message        string          `gorm:"type:text;not null" json:"message"`
	QRURL          string          `gorm:"type:varchar(512)" json:"qr_url"`
	Status         string          `gorm:"type:varchar(20);not null;index" json:"status"`
	SentToLine     bool            `gorm:"not null;default:false" json:"sent_to_line"`
	RequestedBy    uint            `json:"requested_by"`
	ExpiresAt      time.Time       `gorm:"index" json:"expires_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
