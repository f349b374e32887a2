package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sabin-khadka/khaja-ghar-api/config"
)

// KhaltiService implements PaymentGateway against Khalti's ePayment API.
// All amounts sent to and received from Khalti are in paisa.
type KhaltiService struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewKhaltiService creates a new Khalti gateway client
func NewKhaltiService(cfg *config.Config) *KhaltiService {
	return &KhaltiService{
		baseURL:   strings.TrimSuffix(cfg.KhaltiBaseURL, "/"),
		secretKey: cfg.KhaltiSecretKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type khaltiInitiateRequest struct {
	ReturnURL         string       `json:"return_url"`
	WebsiteURL        string       `json:"website_url"`
	Amount            int64        `json:"amount"`
	PurchaseOrderID   string       `json:"purchase_order_id"`
	PurchaseOrderName string       `json:"purchase_order_name"`
	CustomerInfo      CustomerInfo `json:"customer_info"`
}

type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
}

type khaltiLookupRequest struct {
	Pidx string `json:"pidx"`
}

type khaltiLookupResponse struct {
	Pidx          string `json:"pidx"`
	TotalAmount   int64  `json:"total_amount"`
	Status        string `json:"status"` // Completed, Pending, Expired, User canceled, Refunded
	TransactionID string `json:"transaction_id"`
}

type khaltiRefundRequest struct {
	Pidx    string `json:"pidx"`
	Amount  int64  `json:"amount"`
	Remarks string `json:"remarks"`
}

type khaltiRefundResponse struct {
	Detail string `json:"detail"`
}

// Initiate starts a Khalti payment and returns the pidx and payment URL
func (s *KhaltiService) Initiate(amountSubunits int64, purchaseRef, returnURL string, customer CustomerInfo) (*InitiateResult, error) {
	reqBody := khaltiInitiateRequest{
		ReturnURL:         returnURL,
		WebsiteURL:        returnURL,
		Amount:            amountSubunits,
		PurchaseOrderID:   purchaseRef,
		PurchaseOrderName: fmt.Sprintf("Order %s", purchaseRef),
		CustomerInfo:      customer,
	}

	var resp khaltiInitiateResponse
	if err := s.post("/epayment/initiate/", reqBody, &resp); err != nil {
		return nil, err
	}

	if resp.Pidx == "" || resp.PaymentURL == "" {
		return nil, fmt.Errorf("%w: gateway returned an incomplete initiate response", ErrGatewayUnavailable)
	}

	return &InitiateResult{
		PaymentReference: resp.Pidx,
		RedirectURL:      resp.PaymentURL,
	}, nil
}

// Verify looks up a payment by pidx and reports its completion state
func (s *KhaltiService) Verify(paymentReference string) (*VerifyResult, error) {
	var resp khaltiLookupResponse
	if err := s.post("/epayment/lookup/", khaltiLookupRequest{Pidx: paymentReference}, &resp); err != nil {
		return nil, err
	}

	return &VerifyResult{
		Completed:      resp.Status == "Completed",
		AmountSubunits: resp.TotalAmount,
		TransactionID:  resp.TransactionID,
	}, nil
}

// Refund requests a refund of a captured payment
func (s *KhaltiService) Refund(paymentReference string, amountSubunits int64, remarks string) (*RefundResult, error) {
	reqBody := khaltiRefundRequest{
		Pidx:    paymentReference,
		Amount:  amountSubunits,
		Remarks: remarks,
	}

	var resp khaltiRefundResponse
	if err := s.post("/epayment/refund/", reqBody, &resp); err != nil {
		return nil, err
	}

	return &RefundResult{Accepted: true}, nil
}

// post sends an authenticated JSON request to the Khalti API and decodes
// the response. Transport and non-2xx failures become ErrGatewayUnavailable.
func (s *KhaltiService) post(path string, reqBody, respBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode khalti request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create khalti request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+s.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("warning: failed to close khalti response body: %v", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: khalti returned status %d: %s", ErrGatewayUnavailable, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("%w: failed to decode khalti response: %v", ErrGatewayUnavailable, err)
	}

	return nil
}
