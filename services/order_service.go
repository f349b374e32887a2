package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sabin-khadka/khaja-ghar-api/models"
	"github.com/sabin-khadka/khaja-ghar-api/money"
	"gorm.io/gorm"
)

// OrderService orchestrates the order lifecycle: creation, confirmation,
// payment verification, cancellation, and refunds. Every transition is
// applied as a guarded conditional UPDATE so two concurrent attempts on
// the same order cannot both win; the loser sees ErrInvalidStateTransition.
// Gateway calls always happen outside the database transaction: call the
// gateway first, then atomically apply the resulting transition.
type OrderService struct {
	gateway PaymentGateway
	rewards *RewardService
}

var orderServiceInstance *OrderService

// InitOrderService initializes the global order service instance
func InitOrderService(gateway PaymentGateway, rewards *RewardService) *OrderService {
	orderServiceInstance = &OrderService{gateway: gateway, rewards: rewards}
	return orderServiceInstance
}

// GetOrderService returns the initialized order service instance
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service instance (primarily for testing)
func SetOrderService(service *OrderService) {
	orderServiceInstance = service
}

// NewOrderService creates an order service with explicit collaborators
func NewOrderService(gateway PaymentGateway, rewards *RewardService) *OrderService {
	return &OrderService{gateway: gateway, rewards: rewards}
}

// CreateOrderItemInput is one requested order line
type CreateOrderItemInput struct {
	ProductID uint
	Quantity  int
}

// CreateOrderInput carries everything needed to place an order
type CreateOrderInput struct {
	Items           []CreateOrderItemInput
	DeliveryAddress string
	ContactNumber   string
	PaymentMethod   string
}

// ConfirmResult reports the outcome of a confirmation attempt
type ConfirmResult struct {
	Order *models.Order
	// RequiresPayment is true for khalti orders: confirmation does not
	// change state until the payment is verified.
	RequiresPayment bool
	PointsAwarded   int64
}

// CancelResult reports the outcome of a cancellation
type CancelResult struct {
	Order           *models.Order
	VoidedPoints    int64
	RefundAttempted bool
	RefundFailed    bool
}

// CreateOrder places a new order in (pending, pending). Unit prices are
// snapshotted from the product catalog at creation time; the stored totals
// are the single source of truth for every later monetary decision.
func (s *OrderService) CreateOrder(db *gorm.DB, caller *models.User, input CreateOrderInput) (*models.Order, error) {
	if input.PaymentMethod != models.PaymentMethodCash && input.PaymentMethod != models.PaymentMethodKhalti {
		return nil, fmt.Errorf("%w: unknown payment method %q", money.ErrInvalidAmount, input.PaymentMethod)
	}
	if input.DeliveryAddress == "" || input.ContactNumber == "" {
		return nil, fmt.Errorf("%w: delivery address and contact number are required", money.ErrInvalidAmount)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", money.ErrInvalidAmount)
	}

	var orderItems []models.OrderItem
	var lines []money.LineItem
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", money.ErrInvalidAmount)
		}

		var product models.Product
		if err := db.First(&product, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", ErrNotFound, item.ProductID)
			}
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
		if !product.Available {
			return nil, fmt.Errorf("%w: product %q is not available", ErrNotFound, product.Name)
		}

		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
		lines = append(lines, money.LineItem{UnitPrice: product.Price, Quantity: item.Quantity})
	}

	totals, err := money.ComputeTotals(lines)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		PurchaseRef:     uuid.NewString(),
		UserID:          caller.ID,
		Status:          models.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		TotalAmount:     totals.Total,
		DeliveryAddress: input.DeliveryAddress,
		ContactNumber:   input.ContactNumber,
		Items:           orderItems,
	}

	if err := db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return &order, nil
}

// ConfirmOrder moves a pending cash order to processing and awards its
// points. For khalti orders the state is left untouched and the caller is
// told to run the payment initiation flow instead.
func (s *OrderService) ConfirmOrder(db *gorm.DB, caller *models.User, orderID uint) (*ConfirmResult, error) {
	order, err := s.loadOwnedOrder(db, caller, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s, not pending", ErrInvalidStateTransition, order.Status)
	}

	if order.PaymentMethod == models.PaymentMethodKhalti {
		return &ConfirmResult{Order: order, RequiresPayment: true}, nil
	}

	points := money.RewardPoints(order.TotalAmount)
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Update("status", models.OrderStatusProcessing)
		if res.Error != nil {
			return fmt.Errorf("failed to confirm order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order was confirmed or cancelled concurrently", ErrInvalidStateTransition)
		}

		return s.rewards.Award(tx, order.ID, order.UserID, points)
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusProcessing
	return &ConfirmResult{Order: order, PointsAwarded: points}, nil
}

// InitiatePayment starts the gateway payment for a khalti order. The
// amount sent to the gateway is the stored total converted to subunits.
// A gateway failure leaves the order in (pending, pending).
func (s *OrderService) InitiatePayment(db *gorm.DB, caller *models.User, orderID uint, returnURL string) (*InitiateResult, error) {
	order, err := s.loadOwnedOrder(db, caller, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentMethod != models.PaymentMethodKhalti {
		return nil, fmt.Errorf("%w: order is not a khalti order", ErrInvalidStateTransition)
	}
	if order.PaymentStatus != models.PaymentStatusPending || !order.IsCancellable() {
		return nil, fmt.Errorf("%w: payment cannot be initiated for a %s/%s order",
			ErrInvalidStateTransition, order.Status, order.PaymentStatus)
	}

	amount, err := money.ToSubunits(order.TotalAmount)
	if err != nil {
		return nil, err
	}

	customer := CustomerInfo{
		Name:  order.User.Name,
		Email: order.User.Email,
		Phone: order.ContactNumber,
	}

	// Gateway first, then the state write. The order holds no lock while
	// the network call is in flight.
	result, err := s.gateway.Initiate(amount, order.PurchaseRef, returnURL, customer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentInitiationFailed, err)
	}

	res := db.Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND status IN ?",
			order.ID, models.PaymentStatusPending,
			[]string{models.OrderStatusPending, models.OrderStatusProcessing}).
		Update("payment_reference", result.PaymentReference)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to store payment reference: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: order changed while initiating payment", ErrInvalidStateTransition)
	}

	return result, nil
}

// VerifyPayment reconciles a gateway return with the order. The gateway's
// reported amount must equal the subunits of the stored total; a mismatch
// fails verification regardless of the gateway's own completed flag. On
// success the order moves to (processing, paid) and earns its points
// exactly once.
func (s *OrderService) VerifyPayment(db *gorm.DB, caller *models.User, orderID uint, paymentReference string) (*models.Order, error) {
	order, err := s.loadOwnedOrder(db, caller, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentMethod != models.PaymentMethodKhalti {
		return nil, fmt.Errorf("%w: order is not a khalti order", ErrInvalidStateTransition)
	}
	if order.PaymentStatus != models.PaymentStatusPending || !order.IsCancellable() {
		return nil, fmt.Errorf("%w: order is already %s/%s",
			ErrInvalidStateTransition, order.Status, order.PaymentStatus)
	}
	if order.PaymentReference == nil || *order.PaymentReference != paymentReference {
		return nil, fmt.Errorf("%w: unknown payment reference for this order", ErrPaymentVerificationFailed)
	}

	expected, err := money.ToSubunits(order.TotalAmount)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Verify(paymentReference)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentVerificationFailed, err)
	}

	if result.AmountSubunits != expected {
		return nil, fmt.Errorf("%w: gateway reported %d paisa, expected %d",
			ErrPaymentVerificationFailed, result.AmountSubunits, expected)
	}
	if !result.Completed {
		return nil, ErrPaymentNotCompleted
	}

	points := money.RewardPoints(order.TotalAmount)
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ? AND status IN ?",
				order.ID, models.PaymentStatusPending,
				[]string{models.OrderStatusPending, models.OrderStatusProcessing}).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusProcessing,
				"payment_status": models.PaymentStatusPaid,
				"transaction_id": result.TransactionID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark order paid: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order changed while verifying payment", ErrInvalidStateTransition)
		}

		return s.rewards.Award(tx, order.ID, order.UserID, points)
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusProcessing
	order.PaymentStatus = models.PaymentStatusPaid
	order.TransactionID = &result.TransactionID
	return order, nil
}

// CancelOrder cancels a pending or processing order, voids its earned
// points, and for paid khalti orders attempts a refund of the stored
// total. A refund failure never rolls back the cancellation: the failure
// is recorded as payment_status=refund_failed for operator follow-up.
func (s *OrderService) CancelOrder(db *gorm.DB, caller *models.User, orderID uint) (*CancelResult, error) {
	order, err := s.loadOwnedOrder(db, caller, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsCancellable() {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidStateTransition, order.Status)
	}

	result := &CancelResult{Order: order}
	newPaymentStatus := order.PaymentStatus

	// Refund only ever applies to captured khalti payments, and the amount
	// is the stored total at payment time, never a recomputed one.
	if order.PaymentMethod == models.PaymentMethodKhalti &&
		order.PaymentStatus == models.PaymentStatusPaid &&
		order.PaymentReference != nil {

		amount, err := money.ToSubunits(order.TotalAmount)
		if err != nil {
			return nil, err
		}

		result.RefundAttempted = true
		refund, err := s.gateway.Refund(*order.PaymentReference, amount, fmt.Sprintf("cancellation of order %s", order.PurchaseRef))
		if err != nil || !refund.Accepted {
			result.RefundFailed = true
			newPaymentStatus = models.PaymentStatusRefundFailed
		} else {
			newPaymentStatus = models.PaymentStatusRefundInitiated
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", order.ID,
				[]string{models.OrderStatusPending, models.OrderStatusProcessing}).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusCancelled,
				"payment_status": newPaymentStatus,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to cancel order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order was cancelled concurrently", ErrInvalidStateTransition)
		}

		voided, err := s.rewards.Void(tx, order.ID, order.UserID)
		if err != nil {
			return err
		}
		result.VoidedPoints = voided
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusCancelled
	order.PaymentStatus = newPaymentStatus
	return result, nil
}

// RetryRefund re-attempts the refund of a cancelled order whose earlier
// refund failed. Admin-only operational follow-up.
func (s *OrderService) RetryRefund(db *gorm.DB, caller *models.User, orderID uint, remarks string) (*models.Order, error) {
	if caller.Role != "admin" {
		return nil, ErrUnauthorized
	}

	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if order.Status != models.OrderStatusCancelled ||
		order.PaymentStatus != models.PaymentStatusRefundFailed ||
		order.PaymentReference == nil {
		return nil, fmt.Errorf("%w: order has no failed refund to retry", ErrInvalidStateTransition)
	}

	amount, err := money.ToSubunits(order.TotalAmount)
	if err != nil {
		return nil, err
	}

	if remarks == "" {
		remarks = fmt.Sprintf("refund retry for order %s", order.PurchaseRef)
	}

	refund, err := s.gateway.Refund(*order.PaymentReference, amount, remarks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}
	if !refund.Accepted {
		return nil, fmt.Errorf("%w: gateway rejected the refund", ErrRefundFailed)
	}

	res := db.Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", order.ID, models.PaymentStatusRefundFailed).
		Update("payment_status", models.PaymentStatusRefundInitiated)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record refund: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: order changed while retrying refund", ErrInvalidStateTransition)
	}

	order.PaymentStatus = models.PaymentStatusRefundInitiated
	return &order, nil
}

// RemoveOrder deletes a cancelled order from the user's view. The reward
// ledger rows are left in place for audit.
func (s *OrderService) RemoveOrder(db *gorm.DB, caller *models.User, orderID uint) error {
	order, err := s.loadOwnedOrder(db, caller, orderID)
	if err != nil {
		return err
	}

	if order.Status != models.OrderStatusCancelled {
		return fmt.Errorf("%w: only cancelled orders can be removed", ErrInvalidStateTransition)
	}

	if err := db.Delete(&models.Order{}, order.ID).Error; err != nil {
		return fmt.Errorf("failed to remove order: %w", err)
	}
	return nil
}

// loadOwnedOrder fetches an order and enforces that the caller owns it or
// is an admin.
func (s *OrderService) loadOwnedOrder(db *gorm.DB, caller *models.User, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("User").Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if order.UserID != caller.ID && caller.Role != "admin" {
		return nil, ErrUnauthorized
	}

	return &order, nil
}
