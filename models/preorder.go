package models

import (
	"time"

	"gorm.io/gorm"
)

// Pre-order statuses
const (
	PreOrderStatusScheduled = "scheduled"
	PreOrderStatusFulfilled = "fulfilled"
	PreOrderStatusCancelled = "cancelled"
)

// PreOrder represents an order scheduled for a future date
type PreOrder struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	User            User           `gorm:"foreignKey:UserID" json:"user"`
	ProductID       uint           `gorm:"not null;index" json:"product_id"`
	Product         Product        `gorm:"foreignKey:ProductID" json:"product"`
	Quantity        int            `gorm:"not null;check:quantity > 0" json:"quantity"`
	Status          string         `gorm:"not null;default:'scheduled'" json:"status"`
	DeliveryAddress string         `gorm:"not null" json:"delivery_address"`
	ContactNumber   string         `gorm:"not null" json:"contact_number"`
	ScheduledFor    time.Time      `gorm:"not null" json:"scheduled_for"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the PreOrder model
func (PreOrder) TableName() string {
	return "preorders"
}
