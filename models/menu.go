package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ItemCode    string          `gorm:"type:varchar(64);primaryKey" json:"item_code"`
	ItemName    string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Description string          `gorm:"type:text" json:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	ImageURL    string          `gorm:"type:varchar(512)" json:"image_url"`
	ShowInLine  bool            `gorm:"not null;default:true" json:"show_in_line"`
	Disabled    bool            `gorm:"not null;default:false" json:"disabled"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
