package services

import "errors"

// Sentinel errors for the order lifecycle and payment flows. Controllers
// translate these into HTTP responses with errors.Is; raw gateway or
// database errors never reach a caller untranslated.
var (
	// ErrNotFound indicates the order or record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized indicates the caller does not own the order and is
	// not an admin.
	ErrUnauthorized = errors.New("not authorized for this order")

	// ErrInvalidStateTransition indicates the requested lifecycle
	// transition is not legal from the order's current state. The order is
	// left untouched.
	ErrInvalidStateTransition = errors.New("invalid order state transition")

	// ErrPaymentInitiationFailed indicates the gateway rejected or failed
	// the initiate call. The order stays pending.
	ErrPaymentInitiationFailed = errors.New("payment initiation failed")

	// ErrPaymentVerificationFailed indicates the gateway lookup failed or
	// the reported amount did not match the order total.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")

	// ErrPaymentNotCompleted indicates the gateway responded but the
	// payment has not been completed by the customer yet.
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// ErrRefundFailed indicates the refund attempt during cancellation
	// failed. The cancellation itself still stands; payment_status records
	// the failure for operator follow-up.
	ErrRefundFailed = errors.New("refund failed")

	// ErrGatewayUnavailable indicates a transport-level failure talking to
	// the payment gateway. Retryable, unlike a gateway rejection.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
