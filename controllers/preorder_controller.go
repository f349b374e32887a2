package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sabin-khadka/khaja-ghar-api/config"
	"github.com/sabin-khadka/khaja-ghar-api/models"
)

// CreatePreOrderRequest represents the request body for scheduling a pre-order
type CreatePreOrderRequest struct {
	ProductID       uint      `json:"product_id" binding:"required"`
	Quantity        int       `json:"quantity" binding:"required,gt=0"`
	DeliveryAddress string    `json:"delivery_address" binding:"required"`
	ContactNumber   string    `json:"contact_number" binding:"required"`
	ScheduledFor    time.Time `json:"scheduled_for" binding:"required"`
}

// CreatePreOrder handles POST /api/v1/preorders - schedules an order for
// a future date
func CreatePreOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req CreatePreOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	if !req.ScheduledFor.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Scheduled date must be in the future",
			},
		})
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, req.ProductID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PRODUCT_NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	preorder := models.PreOrder{
		UserID:          user.ID,
		ProductID:       product.ID,
		Quantity:        req.Quantity,
		Status:          models.PreOrderStatusScheduled,
		DeliveryAddress: req.DeliveryAddress,
		ContactNumber:   req.ContactNumber,
		ScheduledFor:    req.ScheduledFor,
	}

	if err := db.Create(&preorder).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create pre-order",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    preorder,
	})
}

// ListPreOrders handles GET /api/v1/preorders - lists the caller's
// pre-orders. Admins see all.
func ListPreOrders(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	db := config.GetDB()
	query := db.Preload("Product").Order("scheduled_for")
	if user.Role != "admin" {
		query = query.Where("user_id = ?", user.ID)
	}

	var preorders []models.PreOrder
	if err := query.Find(&preorders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load pre-orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    preorders,
	})
}

// CancelPreOrder handles PUT /api/v1/preorders/:id/cancel
func CancelPreOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid pre-order ID",
			},
		})
		return
	}

	db := config.GetDB()
	var preorder models.PreOrder
	if err := db.First(&preorder, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Pre-order not found",
			},
		})
		return
	}

	if preorder.UserID != user.ID && user.Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have access to this pre-order",
			},
		})
		return
	}

	if preorder.Status != models.PreOrderStatusScheduled {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATE_TRANSITION",
				"message": "Only scheduled pre-orders can be cancelled",
			},
		})
		return
	}

	preorder.Status = models.PreOrderStatusCancelled
	if err := db.Save(&preorder).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to cancel pre-order",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    preorder,
	})
}
