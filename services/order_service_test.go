package services

import (
	"testing"

	"github.com/sabin-khadka/khaja-ghar-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLifecycleTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.RewardTransaction{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func createTestCustomer(t *testing.T, db *gorm.DB) *models.User {
	user := models.User{
		Auth0ID: "auth0|customer123",
		Name:    "Test Customer",
		Email:   "customer@example.com",
		Role:    "customer",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test customer: %v", err)
	}
	return &user
}

func createTestProduct(t *testing.T, db *gorm.DB, price string) *models.Product {
	product := models.Product{
		Name:      "Chicken Momo",
		Category:  "momo",
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return &product
}

func newTestOrderService() (*OrderService, *MockPaymentGateway) {
	gateway := NewMockPaymentGateway()
	return NewOrderService(gateway, &RewardService{}), gateway
}

func countRewards(t *testing.T, db *gorm.DB, orderID uint, txType string) int64 {
	var count int64
	err := db.Model(&models.RewardTransaction{}).
		Where("order_id = ? AND transaction_type = ?", orderID, txType).
		Count(&count).Error
	assert.NoError(t, err)
	return count
}

func TestCreateOrder(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, _ := newTestOrderService()

	order, err := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
		DeliveryAddress: "Thamel, Kathmandu",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodCash,
	})
	assert.NoError(t, err)

	// subtotal 1000.00, tax 130.00, total 1130.00
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "1000.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "130.00", order.Tax.StringFixed(2))
	assert.Equal(t, "1130.00", order.TotalAmount.StringFixed(2))
	assert.NotEmpty(t, order.PurchaseRef)
	assert.Nil(t, order.PaymentReference)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, "500.00", order.Items[0].UnitPrice.StringFixed(2))

	// No points before confirmation
	assert.Equal(t, int64(0), countRewards(t, db, order.ID, models.RewardTypeEarned))
}

func TestCreateOrderValidation(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "250.00")
	service, _ := newTestOrderService()

	tests := []struct {
		name  string
		input CreateOrderInput
	}{
		{
			name: "no items",
			input: CreateOrderInput{
				DeliveryAddress: "Patan",
				ContactNumber:   "9841000000",
				PaymentMethod:   models.PaymentMethodCash,
			},
		},
		{
			name: "zero quantity",
			input: CreateOrderInput{
				Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 0}},
				DeliveryAddress: "Patan",
				ContactNumber:   "9841000000",
				PaymentMethod:   models.PaymentMethodCash,
			},
		},
		{
			name: "missing address",
			input: CreateOrderInput{
				Items:         []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
				ContactNumber: "9841000000",
				PaymentMethod: models.PaymentMethodCash,
			},
		},
		{
			name: "unknown payment method",
			input: CreateOrderInput{
				Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
				DeliveryAddress: "Patan",
				ContactNumber:   "9841000000",
				PaymentMethod:   "paypal",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateOrder(db, user, tt.input)
			assert.Error(t, err)
		})
	}

	t.Run("unknown product", func(t *testing.T) {
		_, err := service.CreateOrder(db, user, CreateOrderInput{
			Items:           []CreateOrderItemInput{{ProductID: 9999, Quantity: 1}},
			DeliveryAddress: "Patan",
			ContactNumber:   "9841000000",
			PaymentMethod:   models.PaymentMethodCash,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConfirmCashOrderAwardsPoints(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, _ := newTestOrderService()

	order, err := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
		DeliveryAddress: "Thamel, Kathmandu",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodCash,
	})
	assert.NoError(t, err)

	result, err := service.ConfirmOrder(db, user, order.ID)
	assert.NoError(t, err)
	assert.False(t, result.RequiresPayment)
	assert.Equal(t, models.OrderStatusProcessing, result.Order.Status)

	// floor(1130 / 10) = 113 points
	assert.Equal(t, int64(113), result.PointsAwarded)

	var reward models.RewardTransaction
	assert.NoError(t, db.Where("order_id = ?", order.ID).First(&reward).Error)
	assert.Equal(t, int64(113), reward.Points)
	assert.Equal(t, models.RewardTypeEarned, reward.TransactionType)
}

func TestConfirmOrderTwice(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, _ := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodCash,
	})

	_, err := service.ConfirmOrder(db, user, order.ID)
	assert.NoError(t, err)

	// Second confirmation fails and must not double-award
	_, err = service.ConfirmOrder(db, user, order.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, int64(1), countRewards(t, db, order.ID, models.RewardTypeEarned))
}

func TestConfirmKhaltiOrderRequiresPayment(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, _ := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})

	result, err := service.ConfirmOrder(db, user, order.ID)
	assert.NoError(t, err)
	assert.True(t, result.RequiresPayment)

	// No state change and no points until the payment is verified
	var stored models.Order
	db.First(&stored, order.ID)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, int64(0), countRewards(t, db, order.ID, models.RewardTypeEarned))
}

func TestInitiatePayment(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "565.00")
	service, gateway := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})

	result, err := service.InitiatePayment(db, user, order.ID, "https://example.com/return")
	assert.NoError(t, err)
	assert.NotEmpty(t, result.PaymentReference)
	assert.NotEmpty(t, result.RedirectURL)

	// total 565.00 + 13% tax = 638.45 -> 63845 paisa sent to the gateway
	assert.Len(t, gateway.InitiateCalls, 1)
	assert.Equal(t, int64(63845), gateway.InitiateCalls[0].AmountSubunits)
	assert.Equal(t, order.PurchaseRef, gateway.InitiateCalls[0].PurchaseRef)

	var stored models.Order
	db.First(&stored, order.ID)
	assert.NotNil(t, stored.PaymentReference)
	assert.Equal(t, result.PaymentReference, *stored.PaymentReference)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestInitiatePaymentGatewayFailure(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, gateway := newTestOrderService()
	gateway.InitiateErr = ErrGatewayUnavailable

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})

	_, err := service.InitiatePayment(db, user, order.ID, "https://example.com/return")
	assert.ErrorIs(t, err, ErrPaymentInitiationFailed)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	// Order stays in (pending, pending) with no payment reference
	var stored models.Order
	db.First(&stored, order.ID)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Nil(t, stored.PaymentReference)
}

func TestVerifyPayment(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, gateway := newTestOrderService()
	gateway.TransactionID = "txn-abc"

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})

	initResult, err := service.InitiatePayment(db, user, order.ID, "https://example.com/return")
	assert.NoError(t, err)

	verified, err := service.VerifyPayment(db, user, order.ID, initResult.PaymentReference)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, verified.Status)
	assert.Equal(t, models.PaymentStatusPaid, verified.PaymentStatus)
	assert.Equal(t, "txn-abc", *verified.TransactionID)

	// Points awarded exactly once: floor(1130 / 10) = 113
	var reward models.RewardTransaction
	assert.NoError(t, db.Where("order_id = ? AND transaction_type = ?", order.ID, models.RewardTypeEarned).First(&reward).Error)
	assert.Equal(t, int64(113), reward.Points)

	// A second verification attempt is rejected without a second award
	_, err = service.VerifyPayment(db, user, order.ID, initResult.PaymentReference)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, int64(1), countRewards(t, db, order.ID, models.RewardTypeEarned))
}

func TestVerifyPaymentAmountMismatch(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, gateway := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})

	initResult, err := service.InitiatePayment(db, user, order.ID, "https://example.com/return")
	assert.NoError(t, err)

	// Gateway reports 50000 paisa for an order worth 113000 paisa.
	// Verification must fail even though the gateway says completed.
	gateway.VerifyCompleted = true
	gateway.VerifyAmount = 50000

	_, err = service.VerifyPayment(db, user, order.ID, initResult.PaymentReference)
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)

	var stored models.Order
	db.First(&stored, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, int64(0), countRewards(t, db, order.ID, models.RewardTypeEarned))
}

func TestVerifyPaymentNotCompleted(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, gateway := newTestOrderService()
	gateway.VerifyCompleted = false

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})

	initResult, _ := service.InitiatePayment(db, user, order.ID, "https://example.com/return")

	_, err := service.VerifyPayment(db, user, order.ID, initResult.PaymentReference)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)

	// Order remains pending so the customer can retry
	var stored models.Order
	db.First(&stored, order.ID)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

// payKhaltiOrder walks an order through initiate + verify so it ends up
// (processing, paid)
func payKhaltiOrder(t *testing.T, db *gorm.DB, service *OrderService, user *models.User, orderID uint) {
	initResult, err := service.InitiatePayment(db, user, orderID, "https://example.com/return")
	assert.NoError(t, err)
	_, err = service.VerifyPayment(db, user, orderID, initResult.PaymentReference)
	assert.NoError(t, err)
}

func TestCancelPaidKhaltiOrderRefunds(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	// 884.96 x 1 -> subtotal 884.96, tax 115.04, total 1000.00
	product := createTestProduct(t, db, "884.96")
	service, gateway := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})
	assert.Equal(t, "1000.00", order.TotalAmount.StringFixed(2))
	payKhaltiOrder(t, db, service, user, order.ID)

	result, err := service.CancelOrder(db, user, order.ID)
	assert.NoError(t, err)
	assert.True(t, result.RefundAttempted)
	assert.False(t, result.RefundFailed)

	// Refund uses the stored total: 1000.00 -> 100000 paisa
	assert.Len(t, gateway.RefundCalls, 1)
	assert.Equal(t, int64(100000), gateway.RefundCalls[0].AmountSubunits)

	var stored models.Order
	db.First(&stored, order.ID)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentStatusRefundInitiated, stored.PaymentStatus)

	// Earned points are voided to a net of zero
	var net int64
	db.Model(&models.RewardTransaction{}).Where("order_id = ?", order.ID).
		Select("COALESCE(SUM(points), 0)").Scan(&net)
	assert.Equal(t, int64(0), net)
}

func TestCancelOrderTwice(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "884.96")
	service, gateway := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})
	payKhaltiOrder(t, db, service, user, order.ID)

	_, err := service.CancelOrder(db, user, order.ID)
	assert.NoError(t, err)

	// Second cancellation: no second refund, no second void
	_, err = service.CancelOrder(db, user, order.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Len(t, gateway.RefundCalls, 1)
	assert.Equal(t, int64(1), countRewards(t, db, order.ID, models.RewardTypeVoided))
}

func TestCancelUnpaidKhaltiOrderSkipsGateway(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, gateway := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})

	result, err := service.CancelOrder(db, user, order.ID)
	assert.NoError(t, err)
	assert.False(t, result.RefundAttempted)
	assert.Empty(t, gateway.RefundCalls)

	// Payment never completed: status cancelled, payment left pending
	var stored models.Order
	db.First(&stored, order.ID)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestCancelOrderRefundFailure(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "884.96")
	service, gateway := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})
	payKhaltiOrder(t, db, service, user, order.ID)

	// Refund fails, cancellation still goes through
	gateway.RefundErr = ErrGatewayUnavailable
	result, err := service.CancelOrder(db, user, order.ID)
	assert.NoError(t, err)
	assert.True(t, result.RefundFailed)

	var stored models.Order
	db.First(&stored, order.ID)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentStatusRefundFailed, stored.PaymentStatus)

	// Points are still voided despite the failed refund
	assert.Equal(t, int64(1), countRewards(t, db, order.ID, models.RewardTypeVoided))
}

func TestRetryRefund(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	admin := models.User{Auth0ID: "auth0|admin1", Name: "Admin", Email: "admin@example.com", Role: "admin"}
	assert.NoError(t, db.Create(&admin).Error)
	product := createTestProduct(t, db, "884.96")
	service, gateway := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodKhalti,
	})
	payKhaltiOrder(t, db, service, user, order.ID)

	gateway.RefundErr = ErrGatewayUnavailable
	_, err := service.CancelOrder(db, user, order.ID)
	assert.NoError(t, err)

	// Customers cannot retry refunds
	_, err = service.RetryRefund(db, user, order.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Admin retry succeeds once the gateway recovers
	gateway.RefundErr = nil
	updated, err := service.RetryRefund(db, &admin, order.ID, "manual retry")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefundInitiated, updated.PaymentStatus)
	assert.Len(t, gateway.RefundCalls, 2)
	assert.Equal(t, int64(100000), gateway.RefundCalls[1].AmountSubunits)

	// Nothing left to retry afterwards
	_, err = service.RetryRefund(db, &admin, order.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestRemoveOrder(t *testing.T) {
	db := setupLifecycleTestDB(t)
	user := createTestCustomer(t, db)
	product := createTestProduct(t, db, "500.00")
	service, _ := newTestOrderService()

	order, _ := service.CreateOrder(db, user, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodCash,
	})

	// Active orders cannot be removed
	err := service.RemoveOrder(db, user, order.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = service.CancelOrder(db, user, order.ID)
	assert.NoError(t, err)

	assert.NoError(t, service.RemoveOrder(db, user, order.ID))

	var count int64
	db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// Reward history survives the removal
	var rewardCount int64
	db.Model(&models.RewardTransaction{}).Where("order_id = ?", order.ID).Count(&rewardCount)
	assert.Equal(t, int64(0), rewardCount) // order never earned points, so nothing to keep
}

func TestOrderOwnership(t *testing.T) {
	db := setupLifecycleTestDB(t)
	owner := createTestCustomer(t, db)
	other := models.User{Auth0ID: "auth0|other", Name: "Other", Email: "other@example.com", Role: "customer"}
	assert.NoError(t, db.Create(&other).Error)
	product := createTestProduct(t, db, "500.00")
	service, _ := newTestOrderService()

	order, _ := service.CreateOrder(db, owner, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
		DeliveryAddress: "Thamel",
		ContactNumber:   "9841000000",
		PaymentMethod:   models.PaymentMethodCash,
	})

	_, err := service.ConfirmOrder(db, &other, order.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = service.CancelOrder(db, &other, order.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = service.ConfirmOrder(db, owner, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
