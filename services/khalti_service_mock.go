package services

import (
	"fmt"
	"sync"
)

// MockPaymentGateway is a mock implementation of PaymentGateway for testing.
// It records every call so tests can assert how often and with what amounts
// the lifecycle talks to the gateway.
type MockPaymentGateway struct {
	mu sync.Mutex

	// Scripted behavior
	InitiateErr     error
	VerifyErr       error
	RefundErr       error
	VerifyCompleted bool
	VerifyAmount    int64
	TransactionID   string
	RefundAccepted  bool

	// Recorded calls
	InitiateCalls []MockInitiateCall
	VerifyCalls   []string
	RefundCalls   []MockRefundCall

	nextPidx int
}

// MockInitiateCall records the arguments of one Initiate call
type MockInitiateCall struct {
	AmountSubunits int64
	PurchaseRef    string
	ReturnURL      string
	Customer       CustomerInfo
}

// MockRefundCall records the arguments of one Refund call
type MockRefundCall struct {
	PaymentReference string
	AmountSubunits   int64
	Remarks          string
}

// NewMockPaymentGateway creates a mock gateway that completes payments and
// accepts refunds by default
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{
		VerifyCompleted: true,
		RefundAccepted:  true,
		TransactionID:   "mock-txn-1",
	}
}

// SetAsMockForTesting sets this mock as the global gateway instance
func (m *MockPaymentGateway) SetAsMockForTesting() {
	SetPaymentGateway(m)
}

// Initiate simulates starting a payment and returns a generated pidx
func (m *MockPaymentGateway) Initiate(amountSubunits int64, purchaseRef, returnURL string, customer CustomerInfo) (*InitiateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitiateCalls = append(m.InitiateCalls, MockInitiateCall{
		AmountSubunits: amountSubunits,
		PurchaseRef:    purchaseRef,
		ReturnURL:      returnURL,
		Customer:       customer,
	})

	if m.InitiateErr != nil {
		return nil, m.InitiateErr
	}

	m.nextPidx++
	pidx := fmt.Sprintf("mock-pidx-%d", m.nextPidx)
	return &InitiateResult{
		PaymentReference: pidx,
		RedirectURL:      fmt.Sprintf("https://pay.example.com/%s", pidx),
	}, nil
}

// Verify simulates a payment lookup using the scripted completion state.
// If VerifyAmount is unset, it echoes the amount from the last Initiate
// call so the default flow verifies cleanly.
func (m *MockPaymentGateway) Verify(paymentReference string) (*VerifyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VerifyCalls = append(m.VerifyCalls, paymentReference)

	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}

	amount := m.VerifyAmount
	if amount == 0 && len(m.InitiateCalls) > 0 {
		amount = m.InitiateCalls[len(m.InitiateCalls)-1].AmountSubunits
	}

	return &VerifyResult{
		Completed:      m.VerifyCompleted,
		AmountSubunits: amount,
		TransactionID:  m.TransactionID,
	}, nil
}

// Refund simulates a refund request
func (m *MockPaymentGateway) Refund(paymentReference string, amountSubunits int64, remarks string) (*RefundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RefundCalls = append(m.RefundCalls, MockRefundCall{
		PaymentReference: paymentReference,
		AmountSubunits:   amountSubunits,
		Remarks:          remarks,
	})

	if m.RefundErr != nil {
		return nil, m.RefundErr
	}

	return &RefundResult{Accepted: m.RefundAccepted}, nil
}
