package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sabin-khadka/khaja-ghar-api/config"
	"github.com/sabin-khadka/khaja-ghar-api/models"
	"github.com/sabin-khadka/khaja-ghar-api/services"
)

// CreateOrderItemRequest is one order line in a create request
type CreateOrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	Items           []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress string                   `json:"delivery_address" binding:"required"`
	ContactNumber   string                   `json:"contact_number" binding:"required"`
	PaymentMethod   string                   `json:"payment_method" binding:"required,oneof=cash khalti"`
}

// CreateOrder handles POST /api/v1/orders/create - places a new order
func CreateOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req CreateOrderRequest
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

	input := services.CreateOrderInput{
		DeliveryAddress: req.DeliveryAddress,
		ContactNumber:   req.ContactNumber,
		PaymentMethod:   req.PaymentMethod,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, services.CreateOrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	db := config.GetDB()
	order, err := services.GetOrderService().CreateOrder(db, user, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"orderId": order.ID,
		"data":    order,
	})
}

// GetOrders handles GET /api/v1/orders - lists the caller's orders.
// Admins see all orders.
func GetOrders(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	db := config.GetDB()
	query := db.Preload("Items").Preload("Items.Product").Order("created_at DESC")
	if user.Role != "admin" {
		query = query.Where("user_id = ?", user.ID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/orders/:id - returns one order
func GetOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.Preload("Items").Preload("Items.Product").First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	if order.UserID != user.ID && user.Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have access to this order",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// ConfirmOrderRequest represents the request body for confirming an order
type ConfirmOrderRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cash khalti"`
	PaymentStatus string `json:"payment_status"`
}

// ConfirmOrder handles PUT /api/v1/orders/:id/confirm - confirms a pending
// order. Cash orders move to processing and earn points; khalti orders are
// told to run the payment initiation flow first.
func ConfirmOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req ConfirmOrderRequest
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

	db := config.GetDB()
	result, err := services.GetOrderService().ConfirmOrder(db, user, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if result.RequiresPayment {
		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"requires_payment": true,
			"message":          "Complete the khalti payment to confirm this order",
			"data":             result.Order,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"pointsAwarded": result.PointsAwarded,
		"data":          result.Order,
	})
}

// CancelOrder handles PUT /api/v1/orders/:id/cancel - cancels an order,
// voids its points, and refunds paid khalti payments best-effort
func CancelOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	db := config.GetDB()
	result, err := services.GetOrderService().CancelOrder(db, user, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response := gin.H{
		"success":         true,
		"cancelledPoints": result.VoidedPoints,
		"data":            result.Order,
	}
	if result.RefundAttempted {
		if result.RefundFailed {
			response["refund"] = "failed"
			response["message"] = "Order cancelled; refund failed and will be retried by support"
		} else {
			response["refund"] = "initiated"
		}
	} else if result.Order.PaymentMethod == models.PaymentMethodKhalti {
		// Payment never completed, nothing to return to the customer
		response["refund"] = "not_required"
	}

	c.JSON(http.StatusOK, response)
}

// RemoveOrder handles DELETE /api/v1/orders/:id - removes a cancelled
// order from the user's view
func RemoveOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	db := config.GetDB()
	if err := services.GetOrderService().RemoveOrder(db, user, orderID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order removed",
	})
}

// parseOrderID parses the :id route parameter, writing the error response
// on failure
func parseOrderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid order ID",
			},
		})
		return 0, false
	}
	return uint(id), true
}
