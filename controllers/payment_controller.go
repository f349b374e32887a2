package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sabin-khadka/khaja-ghar-api/config"
	"github.com/sabin-khadka/khaja-ghar-api/models"
	"github.com/sabin-khadka/khaja-ghar-api/money"
	"github.com/sabin-khadka/khaja-ghar-api/services"
)

// InitiatePaymentRequest represents the request body for starting a
// khalti payment. Amount is in paisa and must match the order's stored
// total.
type InitiatePaymentRequest struct {
	OrderID   uint   `json:"order_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	ReturnURL string `json:"return_url"`
}

// InitiateKhaltiPayment handles POST /api/v1/payment/khalti/initiate
func InitiateKhaltiPayment(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req InitiatePaymentRequest
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

	// The client-supplied amount is only a cross-check; the gateway is
	// always sent the stored total.
	expected, err := storedTotalSubunits(c, req.OrderID)
	if err != nil {
		return
	}
	if req.Amount != expected {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_AMOUNT",
				"message": "Amount does not match the order total",
			},
		})
		return
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = config.GetConfig().KhaltiReturnURL
	}

	result, err := services.GetOrderService().InitiatePayment(db, user, req.OrderID, returnURL)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"pidx":        result.PaymentReference,
			"payment_url": result.RedirectURL,
		},
	})
}

// VerifyPaymentRequest represents the request body for verifying a khalti
// payment after the gateway redirects back
type VerifyPaymentRequest struct {
	Pidx    string `json:"pidx" binding:"required"`
	Amount  int64  `json:"amount"`
	OrderID uint   `json:"order_id" binding:"required"`
}

// VerifyKhaltiPayment handles POST /api/v1/payment/khalti/verify
func VerifyKhaltiPayment(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req VerifyPaymentRequest
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
	order, err := services.GetOrderService().VerifyPayment(db, user, req.OrderID, req.Pidx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Response amounts are display units, never paisa
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"status":         order.PaymentStatus,
			"amount":         order.TotalAmount,
			"transaction_id": order.TransactionID,
			"order_id":       order.ID,
		},
	})
}

// RefundPaymentRequest represents the request body for retrying a failed
// refund
type RefundPaymentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Remarks string `json:"remarks"`
}

// RefundKhaltiPayment handles POST /api/v1/payment/khalti/refund - admin
// re-attempt of a refund that failed during cancellation
func RefundKhaltiPayment(c *gin.Context) {
	user := requireAdmin(c)
	if user == nil {
		return
	}

	var req RefundPaymentRequest
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
	order, err := services.GetOrderService().RetryRefund(db, user, req.OrderID, req.Remarks)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_id":       order.ID,
			"payment_status": order.PaymentStatus,
		},
	})
}

// storedTotalSubunits loads an order's stored total converted to paisa.
// Writes the error response and returns a non-nil error when the order
// cannot be loaded.
func storedTotalSubunits(c *gin.Context, orderID uint) (int64, error) {
	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return 0, err
	}

	subunits, err := money.ToSubunits(order.TotalAmount)
	if err != nil {
		respondServiceError(c, err)
		return 0, err
	}
	return subunits, nil
}
