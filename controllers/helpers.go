package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sabin-khadka/khaja-ghar-api/config"
	"github.com/sabin-khadka/khaja-ghar-api/middleware"
	"github.com/sabin-khadka/khaja-ghar-api/models"
	"github.com/sabin-khadka/khaja-ghar-api/money"
	"github.com/sabin-khadka/khaja-ghar-api/services"
)

// currentUser resolves the authenticated caller to a database user. It
// writes the error response itself and returns nil when the caller cannot
// be resolved.
func currentUser(c *gin.Context) *models.User {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found. Please create a profile first.",
			},
		})
		return nil
	}

	return &user
}

// requireAdmin resolves the caller and rejects non-admins. Returns nil
// after writing the response when the caller is not an admin.
func requireAdmin(c *gin.Context) *models.User {
	user := currentUser(c)
	if user == nil {
		return nil
	}

	if user.Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Admin access required",
			},
		})
		return nil
	}

	return user
}

// respondServiceError maps lifecycle and payment errors onto HTTP
// responses. Validation and state errors carry the message the user
// should see; gateway unavailability is distinguished as retryable.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": err.Error(),
			},
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have access to this order",
			},
		})
	case errors.Is(err, money.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_AMOUNT",
				"message": err.Error(),
			},
		})
	case errors.Is(err, services.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATE_TRANSITION",
				"message": err.Error(),
			},
		})
	case errors.Is(err, services.ErrPaymentNotCompleted):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_NOT_COMPLETED",
				"message": "Payment not completed",
			},
		})
	case errors.Is(err, services.ErrPaymentInitiationFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_INITIATION_FAILED",
				"message": "Could not start the payment, please retry",
			},
		})
	case errors.Is(err, services.ErrPaymentVerificationFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_VERIFICATION_FAILED",
				"message": "Payment could not be verified",
			},
		})
	case errors.Is(err, services.ErrRefundFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "REFUND_FAILED",
				"message": "Refund could not be processed",
			},
		})
	case errors.Is(err, services.ErrGatewayUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GATEWAY_UNAVAILABLE",
				"message": "Payment gateway is unavailable, please retry",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Internal error",
			},
		})
	}
}
