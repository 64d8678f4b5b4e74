package models

import (
	"time"
)

type Customer struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerName string    `gorm:"type:varchar(255);not null" json:"customer_name"`
	MobileNo     string    `gorm:"type:varchar(20);index" json:"mobile_no"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Registration stages of the chat-driven sign up.
const (
	StageNone          = ""
	StageAwaitingName  = "awaiting_name"
	StageAwaitingPhone = "awaiting_phone"
)

// LineProfile links a LINE user to a customer record.
type LineProfile struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	LineUserID        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"line_user_id"`
	DisplayName       string    `gorm:"type:varchar(255)" json:"display_name"`
	PictureURL        string    `gorm:"type:varchar(512)" json:"picture_url"`
	CustomerID        *uint     `gorm:"index" json:"customer_id,omitempty"`
	Customer          *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL" json:"customer,omitempty"`
	Followed          bool      `gorm:"not null;default:true" json:"followed"`
	RegistrationStage string    `gorm:"type:varchar(20)" json:"registration_stage"`
	PendingName       string    `gorm:"type:varchar(255)" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (p *LineProfile) IsRegistered() bool {
	return p.CustomerID != nil
}
