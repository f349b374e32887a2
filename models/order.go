package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusCancelled  = "cancelled"
)

// Payment methods
const (
	PaymentMethodCash   = "cash"
	PaymentMethodKhalti = "khalti"
)

// Payment statuses
const (
	PaymentStatusPending         = "pending"
	PaymentStatusPaid            = "paid"
	PaymentStatusRefundInitiated = "refund_initiated"
	PaymentStatusRefundFailed    = "refund_failed"
)

// Order represents a food order in the system
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	PurchaseRef      string          `gorm:"uniqueIndex;not null" json:"purchase_ref"` // external purchase identifier sent to the gateway
	UserID           uint            `gorm:"not null;index" json:"user_id"`
	User             User            `gorm:"foreignKey:UserID" json:"user"`
	Status           string          `gorm:"not null;default:'pending'" json:"status"`         // pending, processing, confirmed, cancelled
	PaymentMethod    string          `gorm:"not null" json:"payment_method"`                   // cash, khalti
	PaymentStatus    string          `gorm:"not null;default:'pending'" json:"payment_status"` // pending, paid, refund_initiated, refund_failed
	PaymentReference *string         `gorm:"index" json:"payment_reference"`                   // gateway pidx, set once payment is initiated
	TransactionID    *string         `json:"transaction_id"`                                   // gateway transaction ID, set once payment is verified
	Subtotal         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Tax              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	DeliveryAddress  string          `gorm:"not null" json:"delivery_address"`
	ContactNumber    string          `gorm:"not null" json:"contact_number"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsCancellable reports whether the order can still be cancelled.
func (o *Order) IsCancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// OrderItem represents a single priced line within an order. Lines are
// immutable after creation; amending an order means cancel and recreate.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
