package services

import (
	"fmt"

	"github.com/sabin-khadka/khaja-ghar-api/models"
	"gorm.io/gorm"
)

// RewardService maintains the append-only loyalty point ledger. Rows are
// never updated or deleted; reversals are written as negative VOIDED
// entries so the history for an order always nets out.
type RewardService struct{}

var rewardServiceInstance *RewardService

// InitRewardService initializes the global reward service instance
func InitRewardService() *RewardService {
	rewardServiceInstance = &RewardService{}
	return rewardServiceInstance
}

// GetRewardService returns the initialized reward service instance
func GetRewardService() *RewardService {
	if rewardServiceInstance == nil {
		rewardServiceInstance = &RewardService{}
	}
	return rewardServiceInstance
}

// Award writes the EARNED record for an order. At most one EARNED record
// ever exists per order: a repeated call is a no-op, so retried
// confirmations cannot double-award.
func (s *RewardService) Award(tx *gorm.DB, orderID, userID uint, points int64) error {
	var count int64
	if err := tx.Model(&models.RewardTransaction{}).
		Where("order_id = ? AND transaction_type = ?", orderID, models.RewardTypeEarned).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing reward: %w", err)
	}
	if count > 0 {
		return nil
	}

	record := models.RewardTransaction{
		OrderID:         orderID,
		UserID:          userID,
		Points:          points,
		TransactionType: models.RewardTypeEarned,
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to award points: %w", err)
	}
	return nil
}

// Void reverses all points earned for an order by appending a single
// VOIDED record with the negated net. Calling it again, or calling it for
// an order that never earned points, writes nothing. Returns the number
// of points voided.
func (s *RewardService) Void(tx *gorm.DB, orderID, userID uint) (int64, error) {
	var voided int64
	if err := tx.Model(&models.RewardTransaction{}).
		Where("order_id = ? AND transaction_type = ?", orderID, models.RewardTypeVoided).
		Count(&voided).Error; err != nil {
		return 0, fmt.Errorf("failed to check existing void: %w", err)
	}
	if voided > 0 {
		return 0, nil
	}

	var earned int64
	if err := tx.Model(&models.RewardTransaction{}).
		Where("order_id = ? AND transaction_type = ?", orderID, models.RewardTypeEarned).
		Select("COALESCE(SUM(points), 0)").
		Scan(&earned).Error; err != nil {
		return 0, fmt.Errorf("failed to sum earned points: %w", err)
	}
	if earned == 0 {
		return 0, nil
	}

	record := models.RewardTransaction{
		OrderID:         orderID,
		UserID:          userID,
		Points:          -earned,
		TransactionType: models.RewardTypeVoided,
	}
	if err := tx.Create(&record).Error; err != nil {
		return 0, fmt.Errorf("failed to void points: %w", err)
	}
	return earned, nil
}

// Balance returns the user's current point balance across all orders,
// clipped at zero for display.
func (s *RewardService) Balance(db *gorm.DB, userID uint) (int64, error) {
	var balance int64
	if err := db.Model(&models.RewardTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&balance).Error; err != nil {
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}
	if balance < 0 {
		balance = 0
	}
	return balance, nil
}
