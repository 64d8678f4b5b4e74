package models

import (
	"time"
)

const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Reference    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference"`
	SalesOrderID *uint     `gorm:"index" json:"sales_order_id,omitempty"`
	LineUserID   string    `gorm:"type:varchar(64)" json:"line_user_id"`
	Title        string    `gorm:"type:varchar(100)" json:"title"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	Status       string    `gorm:"type:varchar(10);not null" json:"status"`
	Error        string    `gorm:"type:text" json:"error,omitempty"`
	SentBy       *uint     `json:"sent_by,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}
