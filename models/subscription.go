package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription frequencies
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Subscription statuses
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription represents a recurring delivery of a product
type Subscription struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	User            User           `gorm:"foreignKey:UserID" json:"user"`
	ProductID       uint           `gorm:"not null;index" json:"product_id"`
	Product         Product        `gorm:"foreignKey:ProductID" json:"product"`
	Quantity        int            `gorm:"not null;check:quantity > 0" json:"quantity"`
	Frequency       string         `gorm:"not null" json:"frequency"` // daily, weekly, monthly
	Status          string         `gorm:"not null;default:'active'" json:"status"`
	DeliveryAddress string         `gorm:"not null" json:"delivery_address"`
	NextDeliveryAt  time.Time      `json:"next_delivery_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Subscription model
func (Subscription) TableName() string {
	return "subscriptions"
}
