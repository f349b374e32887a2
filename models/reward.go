package models

import (
	"time"
)

// Reward transaction types
const (
	RewardTypeEarned   = "EARNED"
	RewardTypeRedeemed = "REDEEMED"
	RewardTypeVoided   = "VOIDED"
)

// RewardTransaction is an append-only record of loyalty point movement.
// Rows reference an order but survive its removal so the point history
// stays auditable.
type RewardTransaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uint      `gorm:"not null;index" json:"order_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Points          int64     `gorm:"not null" json:"points"`           // positive = earned, negative = reversed
	TransactionType string    `gorm:"not null" json:"transaction_type"` // EARNED, REDEEMED, VOIDED
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for the RewardTransaction model
func (RewardTransaction) TableName() string {
	return "reward_transactions"
}
