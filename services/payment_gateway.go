package services

// CustomerInfo identifies the paying customer to the gateway.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// InitiateResult is returned by a successful payment initiation.
type InitiateResult struct {
	PaymentReference string // gateway pidx, stored on the order for later lookup
	RedirectURL      string // where the customer completes the payment
}

// VerifyResult is the gateway's view of a payment after lookup.
type VerifyResult struct {
	Completed      bool
	AmountSubunits int64
	TransactionID  string
}

// RefundResult reports whether the gateway accepted a refund request.
type RefundResult struct {
	Accepted bool
}

// PaymentGateway is the contract the order lifecycle consumes for online
// payments. Amounts cross this boundary in integer subunits only; display
// amounts never do. Implementations translate transport failures into
// ErrGatewayUnavailable.
type PaymentGateway interface {
	// Initiate starts a payment for an order and returns the reference and
	// redirect URL the customer uses to pay.
	Initiate(amountSubunits int64, purchaseRef, returnURL string, customer CustomerInfo) (*InitiateResult, error)

	// Verify looks up a previously initiated payment. Callers must compare
	// the returned amount against the expected amount before trusting
	// Completed.
	Verify(paymentReference string) (*VerifyResult, error)

	// Refund asks the gateway to return a captured payment.
	Refund(paymentReference string, amountSubunits int64, remarks string) (*RefundResult, error)
}

var paymentGatewayInstance PaymentGateway

// InitPaymentGateway initializes the global payment gateway instance
func InitPaymentGateway(gateway PaymentGateway) PaymentGateway {
	paymentGatewayInstance = gateway
	return paymentGatewayInstance
}

// GetPaymentGateway returns the initialized payment gateway instance
func GetPaymentGateway() PaymentGateway {
	return paymentGatewayInstance
}

// SetPaymentGateway sets the payment gateway instance (primarily for testing)
func SetPaymentGateway(gateway PaymentGateway) {
	paymentGatewayInstance = gateway
}
