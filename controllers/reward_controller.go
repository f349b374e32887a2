package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sabin-khadka/khaja-ghar-api/config"
	"github.com/sabin-khadka/khaja-ghar-api/models"
	"github.com/sabin-khadka/khaja-ghar-api/services"
)

// GetRewardBalance handles GET /api/v1/rewards/balance - returns the
// caller's loyalty point balance
func GetRewardBalance(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	db := config.GetDB()
	balance, err := services.GetRewardService().Balance(db, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load reward balance",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"balance": balance,
		},
	})
}

// GetRewardHistory handles GET /api/v1/rewards/history - lists the
// caller's point movements, newest first
func GetRewardHistory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	db := config.GetDB()
	var transactions []models.RewardTransaction
	if err := db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&transactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load reward history",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transactions,
	})
}
